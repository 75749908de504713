package parser

import (
	"encoding/xml"
	"strconv"

	"github.com/covtrack/covtrack/internal/metrics"
	"github.com/covtrack/covtrack/internal/model"
)

// JaCoCoParser reads JaCoCo XML reports. Line status is derived from the
// missed/covered instruction counters: fully executed lines are covered,
// lines with both executed and missed instructions are partial.
type JaCoCoParser struct{}

type jacocoDoc struct {
	XMLName  xml.Name        `xml:"report"`
	Packages []jacocoPackage `xml:"package"`
}

type jacocoPackage struct {
	Name        string             `xml:"name,attr"`
	SourceFiles []jacocoSourceFile `xml:"sourcefile"`
}

type jacocoSourceFile struct {
	Name  string       `xml:"name,attr"`
	Lines []jacocoLine `xml:"line"`
}

type jacocoLine struct {
	Nr string `xml:"nr,attr"`
	Mi string `xml:"mi,attr"`
	Ci string `xml:"ci,attr"`
	Mb string `xml:"mb,attr"`
	Cb string `xml:"cb,attr"`
}

func (p *JaCoCoParser) Name() string { return "jacoco" }

func (p *JaCoCoParser) Sniff(content []byte) bool {
	return rootElement(content) == "report"
}

func (p *JaCoCoParser) Parse(content []byte) ([]FileLines, error) {
	var doc jacocoDoc
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, xmlParseError(p.Name(), err)
	}

	var files []FileLines
	for _, pkg := range doc.Packages {
		for _, src := range pkg.SourceFiles {
			if src.Name == "" {
				continue
			}
			path := src.Name
			if pkg.Name != "" {
				path = pkg.Name + "/" + src.Name
			}
			file := FileLines{
				Path:  path,
				Lines: make(map[int]model.LineStatus, len(src.Lines)),
			}
			for _, line := range src.Lines {
				num, status, err := p.lineStatus(line)
				if err != nil {
					return nil, err
				}
				mb := optionalCount(line.Mb)
				cb := optionalCount(line.Cb)
				file.BranchesTotal += mb + cb
				file.BranchesCovered += cb
				if prev, ok := file.Lines[num]; ok {
					status = metrics.MergeStatus(prev, status)
				}
				file.Lines[num] = status
			}
			files = append(files, file)
		}
	}
	return files, nil
}

func (p *JaCoCoParser) lineStatus(line jacocoLine) (int, model.LineStatus, error) {
	num, err := p.requiredCount("nr", line.Nr)
	if err != nil {
		return 0, model.LineStatus{}, err
	}
	mi, err := p.requiredCount("mi", line.Mi)
	if err != nil {
		return 0, model.LineStatus{}, err
	}
	ci, err := p.requiredCount("ci", line.Ci)
	if err != nil {
		return 0, model.LineStatus{}, err
	}

	switch {
	case ci > 0 && mi == 0:
		return num, model.Covered(ci), nil
	case ci > 0:
		return num, model.Partial(ci), nil
	default:
		return num, model.Uncovered(), nil
	}
}

func (p *JaCoCoParser) requiredCount(attr, value string) (int, error) {
	if value == "" {
		return 0, &ParseError{Format: p.Name(), Reason: "line element missing " + attr + " attribute"}
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ParseError{Format: p.Name(), Reason: "non-numeric " + attr + " attribute " + strconv.Quote(value)}
	}
	if n < 0 {
		return 0, &ParseError{Format: p.Name(), Reason: "negative " + attr + " attribute " + value}
	}
	return n, nil
}

// optionalCount reads mb/cb branch counters, absent on non-branching lines.
func optionalCount(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
