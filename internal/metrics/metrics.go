// Package metrics computes coverage percentages and merges line statuses.
// Everything here is pure; rounding happens only at presentation boundaries
// (trend snapshot storage, badge text) so repeated aggregation never compounds
// rounding error.
package metrics

import (
	"math"
	"strconv"

	"github.com/covtrack/covtrack/internal/model"
)

// MergeStatus resolves two statuses reported for the same (file, line) within
// one upload, e.g. by two instrumentation passes. The ordering is
// Covered > Partial > Uncovered > NotExecutable; hit counts are summed when
// both sides carry the same winning state.
func MergeStatus(a, b model.LineStatus) model.LineStatus {
	if a.State == b.State {
		return model.LineStatus{State: a.State, Hits: a.Hits + b.Hits}
	}
	if a.State > b.State {
		return a
	}
	return b
}

// Percentage returns 100 * covered / total. A file or report with zero
// executable lines reports 100.0 so dashboards and trend charts never see NaN.
func Percentage(covered, total int) float64 {
	if total == 0 {
		return 100.0
	}
	return 100.0 * float64(covered) / float64(total)
}

// Round1 rounds to one decimal place. Presentation use only.
func Round1(p float64) float64 {
	return math.Round(p*10) / 10
}

// FormatPercent renders a percentage with one decimal, e.g. "33.3". The same
// inputs always yield the byte-identical string, which badge consumers rely on
// for HTTP caching.
func FormatPercent(p float64) string {
	return strconv.FormatFloat(Round1(p), 'f', 1, 64)
}

// CoverageColor buckets a percentage into the dashboard color classes.
func CoverageColor(p float64) string {
	switch {
	case p >= 80:
		return "success"
	case p >= 60:
		return "warning"
	default:
		return "danger"
	}
}
