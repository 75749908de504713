// Package store persists the canonical coverage model: projects, immutable
// reports, the append-only trend series and the latest-per-branch current
// pointers. Readers only ever observe committed state.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/covtrack/covtrack/internal/model"
)

// ErrNotFound is the typed absence returned by every read operation for a
// missing project, report, file or branch.
var ErrNotFound = errors.New("not found")

// Store is the durable backend behind the aggregation coordinator. Commit is
// called only by the coordinator, under the per-project lock; all reads must
// observe committed state only.
type Store interface {
	// SaveProject creates or updates a project record.
	SaveProject(ctx context.Context, p *model.Project) error

	// GetProject returns a project by ID.
	GetProject(ctx context.Context, projectID string) (*model.Project, error)

	// Commit persists the report, appends its trend snapshot and advances
	// the current pointer for (project, branch) as one atomic transaction.
	Commit(ctx context.Context, rep *model.CoverageReport, snap *model.TrendSnapshot) error

	// GetReport returns a committed report with its file set.
	GetReport(ctx context.Context, reportID string) (*model.CoverageReport, error)

	// GetCurrentReport returns the latest committed report for the branch.
	GetCurrentReport(ctx context.Context, projectID, branch string) (*model.CoverageReport, error)

	// GetFileDetail returns one file's line table from a committed report.
	GetFileDetail(ctx context.Context, reportID, path string) (*model.FileCoverage, error)

	// GetTrend returns the snapshots for (project, branch) recorded within
	// [from, to], in chronological commit order.
	GetTrend(ctx context.Context, projectID, branch string, from, to time.Time) ([]model.TrendSnapshot, error)

	// LatestSnapshots returns the most recent snapshot of every branch that
	// has at least one committed report for the project.
	LatestSnapshots(ctx context.Context, projectID string) ([]model.TrendSnapshot, error)
}
