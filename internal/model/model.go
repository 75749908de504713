package model

import "time"

// LineState classifies a single executable source line.
// NotExecutable lines are normally represented by absence from the line map;
// the constant exists so merge logic can rank an explicit "no data" value.
type LineState int

const (
	LineNotExecutable LineState = iota
	LineUncovered
	LinePartial
	LineCovered
)

var lineStateNames = map[LineState]string{
	LineNotExecutable: "not_executable",
	LineUncovered:     "uncovered",
	LinePartial:       "partial",
	LineCovered:       "covered",
}

func (s LineState) String() string {
	if name, ok := lineStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// LineStatus is the per-line classification plus the execution count when the
// source format provides one. Formats without counts record covered lines as
// Hits == 1.
type LineStatus struct {
	State LineState `json:"state"`
	Hits  int       `json:"hits"`
}

// Covered returns a covered status with the given hit count.
func Covered(hits int) LineStatus { return LineStatus{State: LineCovered, Hits: hits} }

// Uncovered returns an uncovered status.
func Uncovered() LineStatus { return LineStatus{State: LineUncovered} }

// Partial returns a partially-covered status (some branches on the line not
// taken) with the given hit count.
func Partial(hits int) LineStatus { return LineStatus{State: LinePartial, Hits: hits} }

// Project is the owning entity for coverage reports. Projects are created
// externally; the engine references them by ID and reads DefaultBranch to
// decide which branch backs the default dashboard view.
type Project struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	DefaultBranch string    `json:"default_branch"`
	CreatedAt     time.Time `json:"created_at"`
}

// FileCoverage holds per-file line coverage inside one report. The Lines map
// is sparse: a line number absent from the map is not executable. LinesTotal
// counts executable lines (covered, partial or uncovered); LinesCovered counts
// fully covered lines only.
type FileCoverage struct {
	ReportID     string             `json:"report_id"`
	Path         string             `json:"path"`
	LinesCovered int                `json:"lines_covered"`
	LinesTotal   int                `json:"lines_total"`
	Lines        map[int]LineStatus `json:"lines"`
}

// CoverageReport is the canonical, immutable representation of one uploaded
// coverage report. All aggregate fields are recomputed from line data when the
// report is built; totals claimed by the source format are ignored.
type CoverageReport struct {
	ID              string         `json:"id"`
	ProjectID       string         `json:"project_id"`
	Branch          string         `json:"branch"`
	CommitSHA       string         `json:"commit_sha,omitempty"`
	Format          string         `json:"format"`
	UploadedAt      time.Time      `json:"uploaded_at"`
	LinesCovered    int            `json:"lines_covered"`
	LinesTotal      int            `json:"lines_total"`
	BranchesCovered int            `json:"branches_covered,omitempty"`
	BranchesTotal   int            `json:"branches_total,omitempty"`
	Files           []FileCoverage `json:"files"`
}

// TrendSnapshot is one append-only row in a project's historical series,
// written once per committed report. CoveragePercent is rounded to one decimal
// at this storage boundary.
type TrendSnapshot struct {
	ProjectID       string    `json:"project_id"`
	ReportID        string    `json:"report_id"`
	Branch          string    `json:"branch"`
	RecordedAt      time.Time `json:"recorded_at"`
	CoveragePercent float64   `json:"coverage_percent"`
	LinesCovered    int       `json:"lines_covered"`
	LinesTotal      int       `json:"lines_total"`
}
