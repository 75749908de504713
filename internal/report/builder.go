// Package report builds the canonical coverage model out of parser output.
// Aggregate numbers are always recomputed from line data; summary totals
// claimed by coverage tools are notoriously inconsistent and never trusted.
package report

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/covtrack/covtrack/internal/metrics"
	"github.com/covtrack/covtrack/internal/model"
	"github.com/covtrack/covtrack/internal/parser"
)

// Meta is the caller-supplied context for one upload. The report ID and
// upload timestamp are assigned later, at commit time, so building stays
// deterministic.
type Meta struct {
	ProjectID string
	Branch    string
	CommitSHA string
	Format    string
}

// ValidationError marks a canonical model that violates an internal
// invariant. This is a defect-class failure, not a user input problem.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "coverage model validation failed: " + e.Reason
}

var driveLetter = regexp.MustCompile(`^[A-Za-z]:`)

// NormalizePath rewrites a source path into the canonical form: forward
// slashes, no drive letter, no leading "./", "/" or "../" segments.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = driveLetter.ReplaceAllString(p, "")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}
	if p == "." || p == ".." {
		return ""
	}
	return p
}

// Build converts parser output into a fully-populated CoverageReport. Files
// whose normalized paths collide (e.g. two instrumentation passes over the
// same source) are merged line by line; per-file and report totals are
// computed from the merged line tables and validated before the report is
// returned.
func Build(meta Meta, files []parser.FileLines) (*model.CoverageReport, error) {
	rep := &model.CoverageReport{
		ProjectID: meta.ProjectID,
		Branch:    meta.Branch,
		CommitSHA: meta.CommitSHA,
		Format:    meta.Format,
	}

	index := make(map[string]int)
	for _, f := range files {
		p := NormalizePath(f.Path)
		if p == "" {
			continue
		}
		i, ok := index[p]
		if !ok {
			index[p] = len(rep.Files)
			rep.Files = append(rep.Files, model.FileCoverage{
				Path:  p,
				Lines: make(map[int]model.LineStatus, len(f.Lines)),
			})
			i = index[p]
		}
		dst := &rep.Files[i]
		for num, status := range f.Lines {
			if prev, ok := dst.Lines[num]; ok {
				status = metrics.MergeStatus(prev, status)
			}
			dst.Lines[num] = status
		}
		rep.BranchesCovered += f.BranchesCovered
		rep.BranchesTotal += f.BranchesTotal
	}

	for i := range rep.Files {
		f := &rep.Files[i]
		f.LinesCovered, f.LinesTotal = countLines(f.Lines)
		rep.LinesCovered += f.LinesCovered
		rep.LinesTotal += f.LinesTotal
	}

	if err := Validate(rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// countLines tallies executable and covered lines from a sparse line table.
// Partial lines are executable but not counted as covered.
func countLines(lines map[int]model.LineStatus) (covered, total int) {
	for _, status := range lines {
		switch status.State {
		case model.LineCovered:
			covered++
			total++
		case model.LinePartial, model.LineUncovered:
			total++
		}
	}
	return covered, total
}

// Validate checks the arithmetic invariants between line-level data and
// rolled-up totals at every level of the report.
func Validate(rep *model.CoverageReport) error {
	var sumCovered, sumTotal int
	for i := range rep.Files {
		f := &rep.Files[i]
		if f.LinesCovered < 0 || f.LinesCovered > f.LinesTotal {
			return &ValidationError{Reason: fmt.Sprintf("file %s: covered %d exceeds total %d", f.Path, f.LinesCovered, f.LinesTotal)}
		}
		covered, total := countLines(f.Lines)
		if covered != f.LinesCovered || total != f.LinesTotal {
			return &ValidationError{Reason: fmt.Sprintf("file %s: totals %d/%d disagree with line data %d/%d",
				f.Path, f.LinesCovered, f.LinesTotal, covered, total)}
		}
		sumCovered += f.LinesCovered
		sumTotal += f.LinesTotal
	}
	if rep.LinesCovered != sumCovered || rep.LinesTotal != sumTotal {
		return &ValidationError{Reason: fmt.Sprintf("report totals %d/%d disagree with file sums %d/%d",
			rep.LinesCovered, rep.LinesTotal, sumCovered, sumTotal)}
	}
	if rep.LinesCovered > rep.LinesTotal {
		return &ValidationError{Reason: fmt.Sprintf("covered %d exceeds total %d", rep.LinesCovered, rep.LinesTotal)}
	}
	return nil
}
