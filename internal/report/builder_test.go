package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covtrack/covtrack/internal/model"
	"github.com/covtrack/covtrack/internal/parser"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"src/a.c", "src/a.c"},
		{"./src/a.c", "src/a.c"},
		{`src\sub\a.c`, "src/sub/a.c"},
		{`C:\work\src\a.c`, "work/src/a.c"},
		{"/home/ci/src/a.c", "home/ci/src/a.c"},
		{"src/sub/../a.c", "src/a.c"},
		{"../../src/a.c", "src/a.c"},
		{"./", ""},
		{"..", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePath(tt.in), "input %q", tt.in)
	}
}

func testMeta() Meta {
	return Meta{ProjectID: "p1", Branch: "main", CommitSHA: "abc1234", Format: "lcov"}
}

func TestBuild_ComputesTotalsFromLineData(t *testing.T) {
	rep, err := Build(testMeta(), []parser.FileLines{
		{
			Path: "src/a.c",
			Lines: map[int]model.LineStatus{
				1: model.Covered(3),
				2: model.Uncovered(),
				3: model.Uncovered(),
			},
		},
		{
			Path: "src/b.c",
			Lines: map[int]model.LineStatus{
				1: model.Covered(1),
				2: model.Partial(2),
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, rep.Files, 2)
	assert.Equal(t, 1, rep.Files[0].LinesCovered)
	assert.Equal(t, 3, rep.Files[0].LinesTotal)
	assert.Equal(t, 1, rep.Files[1].LinesCovered, "partial lines are executable but not covered")
	assert.Equal(t, 2, rep.Files[1].LinesTotal)

	assert.Equal(t, rep.Files[0].LinesCovered+rep.Files[1].LinesCovered, rep.LinesCovered)
	assert.Equal(t, rep.Files[0].LinesTotal+rep.Files[1].LinesTotal, rep.LinesTotal)
	assert.Equal(t, "p1", rep.ProjectID)
	assert.Equal(t, "main", rep.Branch)
	assert.Equal(t, "lcov", rep.Format)
	assert.Empty(t, rep.ID, "report id is assigned at commit time")
	assert.True(t, rep.UploadedAt.IsZero())
}

func TestBuild_MergesDuplicatePaths(t *testing.T) {
	// Two class entries mapping to the same file with disjoint line sets
	// merge into one file covering the union.
	rep, err := Build(testMeta(), []parser.FileLines{
		{Path: "src/b.c", Lines: map[int]model.LineStatus{1: model.Covered(1)}},
		{Path: "./src/b.c", Lines: map[int]model.LineStatus{2: model.Uncovered()}},
	})
	require.NoError(t, err)

	require.Len(t, rep.Files, 1)
	f := rep.Files[0]
	assert.Equal(t, "src/b.c", f.Path)
	assert.Len(t, f.Lines, 2)
	assert.Equal(t, 1, f.LinesCovered)
	assert.Equal(t, 2, f.LinesTotal)
}

func TestBuild_MergeTieBreakOnSameLine(t *testing.T) {
	rep, err := Build(testMeta(), []parser.FileLines{
		{Path: "src/a.c", Lines: map[int]model.LineStatus{5: model.Uncovered()}},
		{Path: "src/a.c", Lines: map[int]model.LineStatus{5: model.Covered(2)}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.Covered(2), rep.Files[0].Lines[5], "covered beats uncovered on merge")
}

func TestBuild_SkipsEmptyPaths(t *testing.T) {
	rep, err := Build(testMeta(), []parser.FileLines{
		{Path: "./", Lines: map[int]model.LineStatus{1: model.Covered(1)}},
		{Path: "src/a.c", Lines: map[int]model.LineStatus{1: model.Covered(1)}},
	})
	require.NoError(t, err)
	require.Len(t, rep.Files, 1)
	assert.Equal(t, "src/a.c", rep.Files[0].Path)
}

func TestBuild_Deterministic(t *testing.T) {
	input := []parser.FileLines{
		{Path: "src/a.c", Lines: map[int]model.LineStatus{1: model.Covered(3), 2: model.Uncovered()}},
	}
	first, err := Build(testMeta(), input)
	require.NoError(t, err)
	second, err := Build(testMeta(), input)
	require.NoError(t, err)
	assert.Equal(t, first, second, "building the same input twice yields identical models")
}

func TestBuild_EmptyReport(t *testing.T) {
	rep, err := Build(testMeta(), nil)
	require.NoError(t, err)
	assert.Zero(t, rep.LinesTotal)
	assert.Zero(t, rep.LinesCovered)
	assert.Empty(t, rep.Files)
}

func TestValidate_CatchesBrokenTotals(t *testing.T) {
	rep, err := Build(testMeta(), []parser.FileLines{
		{Path: "src/a.c", Lines: map[int]model.LineStatus{1: model.Covered(1)}},
	})
	require.NoError(t, err)

	rep.LinesCovered = rep.LinesTotal + 5
	err = Validate(rep)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestValidate_CatchesFileLineDisagreement(t *testing.T) {
	rep, err := Build(testMeta(), []parser.FileLines{
		{Path: "src/a.c", Lines: map[int]model.LineStatus{1: model.Covered(1), 2: model.Uncovered()}},
	})
	require.NoError(t, err)

	rep.Files[0].LinesCovered = 2
	var validationErr *ValidationError
	require.ErrorAs(t, Validate(rep), &validationErr)
}
