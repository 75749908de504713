package parser

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"

	"github.com/covtrack/covtrack/internal/metrics"
	"github.com/covtrack/covtrack/internal/model"
)

// GenericXMLParser is the permissive fallback for XML content no specific
// parser claimed. It accepts either a Cobertura-like document or the minimal
//
//	<file path="src/a.c"><line number="1" hits="3"/></file>
//
// shape under any root element, and fails when neither yields coverage data.
type GenericXMLParser struct{}

func (p *GenericXMLParser) Name() string { return "generic" }

func (p *GenericXMLParser) Sniff(content []byte) bool {
	return rootElement(content) != ""
}

func (p *GenericXMLParser) Parse(content []byte) ([]FileLines, error) {
	if rootElement(content) == "coverage" {
		return (&CoberturaParser{}).Parse(content)
	}

	files, err := p.scanFileElements(content)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &ParseError{Format: p.Name(), Reason: "no recognizable coverage data"}
	}
	return files, nil
}

// scanFileElements walks the token stream collecting <file> elements at any
// depth, with their nested <line> elements.
func (p *GenericXMLParser) scanFileElements(content []byte) ([]FileLines, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var files []FileLines
	var current *FileLines

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xmlParseError(p.Name(), err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "file":
				path := attrValue(t, "path")
				if path == "" {
					path = attrValue(t, "name")
				}
				if path == "" {
					return nil, &ParseError{Format: p.Name(), Line: lineOf(dec), Reason: "file element missing path attribute"}
				}
				files = append(files, FileLines{Path: path, Lines: make(map[int]model.LineStatus)})
				current = &files[len(files)-1]
			case "line":
				if current == nil {
					continue
				}
				if err := p.addLine(current, t, lineOf(dec)); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "file" {
				current = nil
			}
		}
	}
	return files, nil
}

func (p *GenericXMLParser) addLine(file *FileLines, elem xml.StartElement, inputLine int) error {
	numText := attrValue(elem, "number")
	if numText == "" {
		return &ParseError{Format: p.Name(), Line: inputLine, Reason: "line element missing number attribute"}
	}
	num, err := strconv.Atoi(numText)
	if err != nil {
		return &ParseError{Format: p.Name(), Line: inputLine, Reason: "non-numeric line number " + strconv.Quote(numText)}
	}
	hitsText := attrValue(elem, "hits")
	if hitsText == "" {
		return &ParseError{Format: p.Name(), Line: inputLine, Reason: "line element missing hits attribute"}
	}
	hits, err := strconv.Atoi(hitsText)
	if err != nil {
		return &ParseError{Format: p.Name(), Line: inputLine, Reason: "non-numeric hit count " + strconv.Quote(hitsText)}
	}
	if hits < 0 {
		return &ParseError{Format: p.Name(), Line: inputLine, Reason: "negative hit count " + hitsText}
	}

	status := model.Uncovered()
	if hits > 0 {
		status = model.Covered(hits)
	}
	if prev, ok := file.Lines[num]; ok {
		status = metrics.MergeStatus(prev, status)
	}
	file.Lines[num] = status
	return nil
}

func attrValue(elem xml.StartElement, name string) string {
	for _, attr := range elem.Attr {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}

func lineOf(dec *xml.Decoder) int {
	line, _ := dec.InputPos()
	return line
}
