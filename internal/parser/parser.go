// Package parser turns third-party coverage report formats (Cobertura XML,
// LCOV, JaCoCo XML, generic coverage XML) into per-file line-hit tables.
// Parsing is pure and all-or-nothing: a malformed entry anywhere in the input
// fails the whole parse so downstream aggregation never sees a half-parsed
// report.
package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/covtrack/covtrack/internal/model"
)

// ErrFormatUnrecognized is returned when no parser claims the content and no
// valid declared format was supplied.
var ErrFormatUnrecognized = errors.New("unrecognized coverage format")

// ParseError describes a structural problem in a recognized format, with the
// offending input line when known.
type ParseError struct {
	Format string
	Line   int // 1-based line in the input, 0 when unknown
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Format, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Format, e.Reason)
}

// FileLines is the intermediate per-file line table every parser produces.
// The Lines map is sparse: line numbers the format never mentions are not
// executable and must not appear. Branch totals are populated only by formats
// that report branch data.
type FileLines struct {
	Path            string
	Lines           map[int]model.LineStatus
	BranchesCovered int
	BranchesTotal   int
}

// Parser is implemented once per supported report format.
type Parser interface {
	// Name is the canonical format tag, also accepted as a declared format.
	Name() string

	// Sniff reports whether the content looks like this format. Used only
	// when the caller did not declare a format.
	Sniff(content []byte) bool

	// Parse converts the content into per-file line tables. On failure the
	// returned error is a *ParseError.
	Parse(content []byte) ([]FileLines, error)
}

// rootElement returns the local name of the first XML start element, or ""
// when the content is not XML at all.
func rootElement(content []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(content))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local
		}
	}
}

// xmlParseError converts an encoding/xml failure into a ParseError, keeping
// the decoder's line information when available.
func xmlParseError(format string, err error) *ParseError {
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		return &ParseError{Format: format, Line: syn.Line, Reason: syn.Msg}
	}
	return &ParseError{Format: format, Reason: err.Error()}
}
