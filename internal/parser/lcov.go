package parser

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/covtrack/covtrack/internal/metrics"
	"github.com/covtrack/covtrack/internal/model"
)

// LCOVParser reads the lcov tracefile format: SF:/DA:/BRDA: records grouped
// into per-file blocks terminated by end_of_record.
type LCOVParser struct{}

func (p *LCOVParser) Name() string { return "lcov" }

func (p *LCOVParser) Sniff(content []byte) bool {
	trimmed := bytes.TrimLeft(content, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("TN:")) ||
		bytes.HasPrefix(trimmed, []byte("SF:")) ||
		bytes.Contains(content, []byte("\nSF:"))
}

// lcovFile accumulates one SF:...end_of_record block. Branch outcomes are
// collected separately so covered lines with an untaken branch can be
// reclassified as partial when the block closes.
type lcovFile struct {
	table       FileLines
	branchMiss  map[int]bool
	branchTaken map[int]bool
}

func (p *LCOVParser) Parse(content []byte) ([]FileLines, error) {
	var (
		files   []FileLines
		current *lcovFile
		lineNo  int
	)

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "" || strings.HasPrefix(line, "TN:"):
			// Test name records carry no coverage data.

		case strings.HasPrefix(line, "SF:"):
			// A new block implicitly closes an unterminated previous one;
			// lcov emitters are not consistent about trailing end_of_record.
			if current != nil {
				files = append(files, current.close())
			}
			path := strings.TrimSpace(strings.TrimPrefix(line, "SF:"))
			if path == "" {
				return nil, &ParseError{Format: p.Name(), Line: lineNo, Reason: "SF record with empty path"}
			}
			current = &lcovFile{
				table:       FileLines{Path: path, Lines: make(map[int]model.LineStatus)},
				branchMiss:  make(map[int]bool),
				branchTaken: make(map[int]bool),
			}

		case strings.HasPrefix(line, "DA:"):
			if current == nil {
				return nil, &ParseError{Format: p.Name(), Line: lineNo, Reason: "DA record outside SF block"}
			}
			if err := p.parseDA(current, line, lineNo); err != nil {
				return nil, err
			}

		case strings.HasPrefix(line, "BRDA:"):
			if current == nil {
				return nil, &ParseError{Format: p.Name(), Line: lineNo, Reason: "BRDA record outside SF block"}
			}
			if err := p.parseBRDA(current, line, lineNo); err != nil {
				return nil, err
			}

		case line == "end_of_record":
			if current != nil {
				files = append(files, current.close())
				current = nil
			}

		default:
			// FN/FNDA/LH/LF and friends are summary records; totals are
			// recomputed from DA data downstream so they are skipped here.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Format: p.Name(), Line: lineNo, Reason: err.Error()}
	}
	if current != nil {
		files = append(files, current.close())
	}
	return files, nil
}

// parseDA handles DA:<line>,<hits>[,<checksum>].
func (p *LCOVParser) parseDA(f *lcovFile, line string, lineNo int) error {
	parts := strings.Split(strings.TrimPrefix(line, "DA:"), ",")
	if len(parts) < 2 {
		return &ParseError{Format: p.Name(), Line: lineNo, Reason: "DA record needs line and hit count"}
	}
	num, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return &ParseError{Format: p.Name(), Line: lineNo, Reason: "non-numeric line number " + strconv.Quote(parts[0])}
	}
	if num < 1 {
		return &ParseError{Format: p.Name(), Line: lineNo, Reason: "line numbers are 1-based, got " + parts[0]}
	}
	hits, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return &ParseError{Format: p.Name(), Line: lineNo, Reason: "non-numeric hit count " + strconv.Quote(parts[1])}
	}
	if hits < 0 {
		return &ParseError{Format: p.Name(), Line: lineNo, Reason: "negative hit count " + parts[1]}
	}

	status := model.Uncovered()
	if hits > 0 {
		status = model.Covered(hits)
	}
	if prev, ok := f.table.Lines[num]; ok {
		status = metrics.MergeStatus(prev, status)
	}
	f.table.Lines[num] = status
	return nil
}

// parseBRDA handles BRDA:<line>,<block>,<branch>,<taken>; taken is "-" when
// the surrounding block never executed.
func (p *LCOVParser) parseBRDA(f *lcovFile, line string, lineNo int) error {
	parts := strings.Split(strings.TrimPrefix(line, "BRDA:"), ",")
	if len(parts) != 4 {
		return &ParseError{Format: p.Name(), Line: lineNo, Reason: "BRDA record needs 4 fields"}
	}
	num, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return &ParseError{Format: p.Name(), Line: lineNo, Reason: "non-numeric line number " + strconv.Quote(parts[0])}
	}
	taken := strings.TrimSpace(parts[3])

	f.table.BranchesTotal++
	if taken == "-" || taken == "0" {
		f.branchMiss[num] = true
		return nil
	}
	if _, err := strconv.Atoi(taken); err != nil {
		return &ParseError{Format: p.Name(), Line: lineNo, Reason: "non-numeric branch taken count " + strconv.Quote(taken)}
	}
	f.table.BranchesCovered++
	f.branchTaken[num] = true
	return nil
}

// close finalizes a block: executed lines with both taken and untaken
// branches become partial. Lines never mentioned by a DA record stay absent.
func (f *lcovFile) close() FileLines {
	for num, status := range f.table.Lines {
		if status.State == model.LineCovered && f.branchMiss[num] && f.branchTaken[num] {
			f.table.Lines[num] = model.Partial(status.Hits)
		}
	}
	return f.table
}
