package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covtrack/covtrack/internal/model"
)

func snaps(percents ...float64) []model.TrendSnapshot {
	out := make([]model.TrendSnapshot, len(percents))
	for i, p := range percents {
		out[i] = model.TrendSnapshot{CoveragePercent: p}
	}
	return out
}

func TestDirectionOf(t *testing.T) {
	assert.Equal(t, DirectionStable, DirectionOf(nil))
	assert.Equal(t, DirectionStable, DirectionOf(snaps(50)))
	assert.Equal(t, DirectionStable, DirectionOf(snaps(50, 50.5)), "changes within a point are stable")
	assert.Equal(t, DirectionIncreasing, DirectionOf(snaps(50, 55)))
	assert.Equal(t, DirectionDecreasing, DirectionOf(snaps(55, 48)))
	assert.Equal(t, DirectionIncreasing, DirectionOf(snaps(50, 20, 80)), "only endpoints matter")
}

func TestDistribute(t *testing.T) {
	files := []model.FileCoverage{
		{LinesCovered: 95, LinesTotal: 100},
		{LinesCovered: 85, LinesTotal: 100},
		{LinesCovered: 70, LinesTotal: 100},
		{LinesCovered: 10, LinesTotal: 100},
		{LinesCovered: 0, LinesTotal: 0}, // no executable lines counts as fully covered
	}
	d := Distribute(files)
	assert.Equal(t, 2, d.Excellent)
	assert.Equal(t, 1, d.Good)
	assert.Equal(t, 1, d.Fair)
	assert.Equal(t, 1, d.Poor)
}

func TestUncoveredGaps(t *testing.T) {
	f := &model.FileCoverage{
		Lines: map[int]model.LineStatus{
			1: model.Covered(1),
			2: model.Uncovered(),
			3: model.Uncovered(),
			4: model.Uncovered(),
			5: model.Covered(2),
			8: model.Uncovered(),
			9: model.Partial(1), // partial lines are not gaps
		},
	}
	gaps := UncoveredGaps(f)
	require.Len(t, gaps, 2)
	assert.Equal(t, Gap{Start: 2, End: 4}, gaps[0])
	assert.Equal(t, Gap{Start: 8, End: 8}, gaps[1])
}

func TestUncoveredGaps_NoUncoveredLines(t *testing.T) {
	f := &model.FileCoverage{
		Lines: map[int]model.LineStatus{1: model.Covered(1)},
	}
	assert.Nil(t, UncoveredGaps(f))
}

func TestCompare(t *testing.T) {
	older := &model.CoverageReport{
		LinesCovered: 5,
		LinesTotal:   10,
		Files: []model.FileCoverage{
			{Path: "src/a.c", LinesCovered: 5, LinesTotal: 10},
			{Path: "src/gone.c", LinesCovered: 0, LinesTotal: 2},
		},
	}
	newer := &model.CoverageReport{
		LinesCovered: 9,
		LinesTotal:   12,
		Files: []model.FileCoverage{
			{Path: "src/a.c", LinesCovered: 8, LinesTotal: 10},
			{Path: "src/new.c", LinesCovered: 1, LinesTotal: 2},
		},
	}

	cmp := Compare(older, newer)
	assert.InDelta(t, 25.0, cmp.CoverageChange, 0.001)
	assert.Equal(t, 4, cmp.LinesCoveredDelta)
	assert.Equal(t, 2, cmp.LinesTotalDelta)

	require.Len(t, cmp.FileChanges, 3)
	assert.Equal(t, "src/a.c", cmp.FileChanges[0].Path)
	assert.Equal(t, "modified", cmp.FileChanges[0].Status)
	assert.InDelta(t, 30.0, cmp.FileChanges[0].CoverageChange, 0.001)

	assert.Equal(t, "src/gone.c", cmp.FileChanges[1].Path)
	assert.Equal(t, "removed", cmp.FileChanges[1].Status)

	assert.Equal(t, "src/new.c", cmp.FileChanges[2].Path)
	assert.Equal(t, "added", cmp.FileChanges[2].Status)
	assert.InDelta(t, 50.0, cmp.FileChanges[2].NewCoverage, 0.001)
}
