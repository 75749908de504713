package parser

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/covtrack/covtrack/internal/metrics"
	"github.com/covtrack/covtrack/internal/model"
)

// CoberturaParser reads Cobertura XML reports as produced by coverage.py,
// gcovr, the original Java cobertura and their many imitators.
type CoberturaParser struct{}

type coberturaDoc struct {
	XMLName xml.Name         `xml:"coverage"`
	Classes []coberturaClass `xml:"packages>package>classes>class"`
}

type coberturaClass struct {
	Filename string          `xml:"filename,attr"`
	Lines    []coberturaLine `xml:"lines>line"`
}

// Attributes decode as strings so missing and non-numeric values can be told
// apart and rejected with a useful reason.
type coberturaLine struct {
	Number  string `xml:"number,attr"`
	Hits    string `xml:"hits,attr"`
	Branch  string `xml:"branch,attr"`
	CondCov string `xml:"condition-coverage,attr"`
}

func (p *CoberturaParser) Name() string { return "cobertura" }

func (p *CoberturaParser) Sniff(content []byte) bool {
	return rootElement(content) == "coverage"
}

func (p *CoberturaParser) Parse(content []byte) ([]FileLines, error) {
	var doc coberturaDoc
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, xmlParseError(p.Name(), err)
	}

	var files []FileLines
	for _, class := range doc.Classes {
		if class.Filename == "" {
			continue
		}
		file := FileLines{
			Path:  class.Filename,
			Lines: make(map[int]model.LineStatus, len(class.Lines)),
		}
		for _, line := range class.Lines {
			status, covered, total, err := p.lineStatus(line)
			if err != nil {
				return nil, err
			}
			file.BranchesCovered += covered
			file.BranchesTotal += total
			if prev, ok := file.Lines[statusKey(line.Number)]; ok {
				status = metrics.MergeStatus(prev, status)
			}
			file.Lines[statusKey(line.Number)] = status
		}
		files = append(files, file)
	}
	return files, nil
}

// lineStatus maps one <line> element to a LineStatus plus the branch counts
// embedded in its condition-coverage attribute.
func (p *CoberturaParser) lineStatus(line coberturaLine) (model.LineStatus, int, int, error) {
	if line.Number == "" {
		return model.LineStatus{}, 0, 0, &ParseError{Format: p.Name(), Reason: "line element missing number attribute"}
	}
	if _, err := strconv.Atoi(line.Number); err != nil {
		return model.LineStatus{}, 0, 0, &ParseError{Format: p.Name(), Reason: "non-numeric line number " + strconv.Quote(line.Number)}
	}
	if line.Hits == "" {
		return model.LineStatus{}, 0, 0, &ParseError{Format: p.Name(), Reason: "line element missing hits attribute"}
	}
	hits, err := strconv.Atoi(line.Hits)
	if err != nil {
		return model.LineStatus{}, 0, 0, &ParseError{Format: p.Name(), Reason: "non-numeric hit count " + strconv.Quote(line.Hits)}
	}
	if hits < 0 {
		return model.LineStatus{}, 0, 0, &ParseError{Format: p.Name(), Reason: "negative hit count " + line.Hits}
	}

	branchCovered, branchTotal, full := parseConditionCoverage(line.CondCov)

	if hits == 0 {
		return model.Uncovered(), branchCovered, branchTotal, nil
	}
	if line.Branch == "true" && line.CondCov != "" && !full {
		return model.Partial(hits), branchCovered, branchTotal, nil
	}
	return model.Covered(hits), branchCovered, branchTotal, nil
}

// parseConditionCoverage reads the "50% (1/2)" shape of the
// condition-coverage attribute. Unparseable values are treated as absent
// rather than failing the upload; the attribute is advisory.
func parseConditionCoverage(s string) (covered, total int, full bool) {
	if s == "" {
		return 0, 0, true
	}
	percentText, rest, ok := strings.Cut(s, "%")
	if !ok {
		return 0, 0, true
	}
	percent, err := strconv.ParseFloat(strings.TrimSpace(percentText), 64)
	if err != nil {
		return 0, 0, true
	}
	full = percent >= 100

	rest = strings.TrimSpace(rest)
	rest = strings.TrimPrefix(rest, "(")
	rest = strings.TrimSuffix(rest, ")")
	covText, totalText, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, 0, full
	}
	covered, err1 := strconv.Atoi(strings.TrimSpace(covText))
	total, err2 := strconv.Atoi(strings.TrimSpace(totalText))
	if err1 != nil || err2 != nil {
		return 0, 0, full
	}
	return covered, total, full
}

// statusKey converts an already-validated numeric attribute.
func statusKey(number string) int {
	n, _ := strconv.Atoi(number)
	return n
}
