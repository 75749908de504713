package parser

import (
	"fmt"
	"strings"
)

// parsers holds every supported format in sniffing priority order. The
// generic XML parser is deliberately last: it claims any XML content the
// specific parsers did not.
var parsers = []Parser{
	&CoberturaParser{},
	&JaCoCoParser{},
	&LCOVParser{},
	&GenericXMLParser{},
}

// aliases maps accepted declared-format names onto canonical parser names.
var aliases = map[string]string{
	"cobertura":     "cobertura",
	"cobertura-xml": "cobertura",
	"jacoco":        "jacoco",
	"jacoco-xml":    "jacoco",
	"lcov":          "lcov",
	"lcov-info":     "lcov",
	"generic":       "generic",
	"xml":           "generic",
}

// ByName looks up a parser by declared format name (case-insensitive).
func ByName(format string) (Parser, bool) {
	canonical, ok := aliases[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, false
	}
	for _, p := range parsers {
		if p.Name() == canonical {
			return p, true
		}
	}
	return nil, false
}

// Parse dispatches the content to a format parser. A non-empty declared
// format is honored first; otherwise each parser sniffs the content in
// priority order. The resolved format name is returned alongside the parsed
// file tables.
func Parse(declared string, content []byte) ([]FileLines, string, error) {
	if declared != "" {
		p, ok := ByName(declared)
		if !ok {
			return nil, "", fmt.Errorf("declared format %q: %w", declared, ErrFormatUnrecognized)
		}
		files, err := p.Parse(content)
		if err != nil {
			return nil, "", err
		}
		return files, p.Name(), nil
	}

	for _, p := range parsers {
		if !p.Sniff(content) {
			continue
		}
		files, err := p.Parse(content)
		if err != nil {
			return nil, "", err
		}
		return files, p.Name(), nil
	}

	return nil, "", ErrFormatUnrecognized
}
