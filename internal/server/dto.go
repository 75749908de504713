package server

import (
	"time"

	"github.com/covtrack/covtrack/internal/model"
	"github.com/covtrack/covtrack/internal/trend"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ReportSummary is the report view returned by upload and current-report
// endpoints; line tables are served per file by the file detail endpoint.
type ReportSummary struct {
	ID              string             `json:"id"`
	ProjectID       string             `json:"project_id"`
	Branch          string             `json:"branch"`
	CommitSHA       string             `json:"commit_sha,omitempty"`
	Format          string             `json:"format"`
	UploadedAt      time.Time          `json:"uploaded_at"`
	CoveragePercent string             `json:"coverage_percent"`
	CoverageColor   string             `json:"coverage_color"`
	LinesCovered    int                `json:"lines_covered"`
	LinesTotal      int                `json:"lines_total"`
	BranchesCovered int                `json:"branches_covered,omitempty"`
	BranchesTotal   int                `json:"branches_total,omitempty"`
	Files           []FileSummary      `json:"files"`
	Distribution    trend.Distribution `json:"distribution"`
}

// FileSummary is the per-file rollup inside a ReportSummary.
type FileSummary struct {
	Path            string `json:"path"`
	CoveragePercent string `json:"coverage_percent"`
	LinesCovered    int    `json:"lines_covered"`
	LinesTotal      int    `json:"lines_total"`
}

// FileDetail is the line-level view consumed by the heatmap renderer. Every
// line present in Lines is executable; absent lines are not.
type FileDetail struct {
	ReportID        string                   `json:"report_id"`
	Path            string                   `json:"path"`
	CoveragePercent string                   `json:"coverage_percent"`
	LinesCovered    int                      `json:"lines_covered"`
	LinesTotal      int                      `json:"lines_total"`
	Lines           map[int]model.LineStatus `json:"lines"`
	Gaps            []trend.Gap              `json:"gaps,omitempty"`
}

// TrendResponse is the historical series for one branch.
type TrendResponse struct {
	ProjectID string                `json:"project_id"`
	Branch    string                `json:"branch"`
	Direction trend.Direction       `json:"direction"`
	Snapshots []model.TrendSnapshot `json:"snapshots"`
}
