// Package trend derives dashboard insights from committed reports and the
// historical snapshot series: trend direction, per-file coverage
// distribution, uncovered-line gaps and report-to-report comparison.
package trend

import (
	"sort"

	"github.com/covtrack/covtrack/internal/model"
)

// Direction classifies how a snapshot series is moving.
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// directionThreshold is the percentage-point change below which a series is
// considered stable.
const directionThreshold = 1.0

// DirectionOf compares the first and last snapshot of a chronological series.
func DirectionOf(snaps []model.TrendSnapshot) Direction {
	if len(snaps) < 2 {
		return DirectionStable
	}
	delta := snaps[len(snaps)-1].CoveragePercent - snaps[0].CoveragePercent
	switch {
	case delta > directionThreshold:
		return DirectionIncreasing
	case delta < -directionThreshold:
		return DirectionDecreasing
	default:
		return DirectionStable
	}
}

// Distribution buckets a report's files by coverage percentage.
type Distribution struct {
	Excellent int `json:"excellent"` // >= 90%
	Good      int `json:"good"`      // 80-89%
	Fair      int `json:"fair"`      // 60-79%
	Poor      int `json:"poor"`      // < 60%
}

// Distribute classifies every file of a report.
func Distribute(files []model.FileCoverage) Distribution {
	var d Distribution
	for i := range files {
		p := filePercent(&files[i])
		switch {
		case p >= 90:
			d.Excellent++
		case p >= 80:
			d.Good++
		case p >= 60:
			d.Fair++
		default:
			d.Poor++
		}
	}
	return d
}

func filePercent(f *model.FileCoverage) float64 {
	if f.LinesTotal == 0 {
		return 100.0
	}
	return 100.0 * float64(f.LinesCovered) / float64(f.LinesTotal)
}

// Gap is a run of consecutive uncovered lines, inclusive on both ends.
type Gap struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// UncoveredGaps finds the runs of consecutive uncovered lines in a file,
// ordered by line number. Heatmap tooltips use these to point at whole
// untested regions instead of single lines.
func UncoveredGaps(f *model.FileCoverage) []Gap {
	var uncovered []int
	for num, status := range f.Lines {
		if status.State == model.LineUncovered {
			uncovered = append(uncovered, num)
		}
	}
	if len(uncovered) == 0 {
		return nil
	}
	sort.Ints(uncovered)

	gaps := []Gap{{Start: uncovered[0], End: uncovered[0]}}
	for _, num := range uncovered[1:] {
		last := &gaps[len(gaps)-1]
		if num == last.End+1 {
			last.End = num
			continue
		}
		gaps = append(gaps, Gap{Start: num, End: num})
	}
	return gaps
}

// FileChange describes one file's difference between two reports.
type FileChange struct {
	Path           string  `json:"path"`
	Status         string  `json:"status"` // added, removed or modified
	OldCoverage    float64 `json:"old_coverage"`
	NewCoverage    float64 `json:"new_coverage"`
	CoverageChange float64 `json:"coverage_change"`
}

// Comparison summarizes the difference between two reports.
type Comparison struct {
	CoverageChange    float64      `json:"coverage_change"`
	LinesCoveredDelta int          `json:"lines_covered_delta"`
	LinesTotalDelta   int          `json:"lines_total_delta"`
	FileChanges       []FileChange `json:"file_changes"`
}

// Compare diffs a newer report against an older one. File changes are sorted
// by path for a stable result.
func Compare(older, newer *model.CoverageReport) Comparison {
	cmp := Comparison{
		CoverageChange:    reportPercent(newer) - reportPercent(older),
		LinesCoveredDelta: newer.LinesCovered - older.LinesCovered,
		LinesTotalDelta:   newer.LinesTotal - older.LinesTotal,
	}

	oldFiles := make(map[string]*model.FileCoverage, len(older.Files))
	for i := range older.Files {
		oldFiles[older.Files[i].Path] = &older.Files[i]
	}
	newFiles := make(map[string]*model.FileCoverage, len(newer.Files))
	for i := range newer.Files {
		newFiles[newer.Files[i].Path] = &newer.Files[i]
	}

	paths := make(map[string]struct{}, len(oldFiles)+len(newFiles))
	for p := range oldFiles {
		paths[p] = struct{}{}
	}
	for p := range newFiles {
		paths[p] = struct{}{}
	}

	for p := range paths {
		oldF, inOld := oldFiles[p]
		newF, inNew := newFiles[p]
		change := FileChange{Path: p}
		switch {
		case inOld && inNew:
			change.Status = "modified"
			change.OldCoverage = filePercent(oldF)
			change.NewCoverage = filePercent(newF)
		case inNew:
			change.Status = "added"
			change.NewCoverage = filePercent(newF)
		default:
			change.Status = "removed"
			change.OldCoverage = filePercent(oldF)
		}
		change.CoverageChange = change.NewCoverage - change.OldCoverage
		cmp.FileChanges = append(cmp.FileChanges, change)
	}

	sort.Slice(cmp.FileChanges, func(i, j int) bool {
		return cmp.FileChanges[i].Path < cmp.FileChanges[j].Path
	})
	return cmp
}

func reportPercent(r *model.CoverageReport) float64 {
	if r.LinesTotal == 0 {
		return 100.0
	}
	return 100.0 * float64(r.LinesCovered) / float64(r.LinesTotal)
}
