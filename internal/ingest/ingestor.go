// Package ingest coordinates one coverage upload from raw bytes to committed
// state. Each upload moves through Parsing, Validated, Committing and
// Committed; a failure before Committing rejects the upload with no side
// effects. Parsing and validation are pure and run without locking; only the
// commit step serializes, per project+branch.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/covtrack/covtrack/internal/logger"
	"github.com/covtrack/covtrack/internal/metrics"
	"github.com/covtrack/covtrack/internal/model"
	"github.com/covtrack/covtrack/internal/parser"
	"github.com/covtrack/covtrack/internal/report"
	"github.com/covtrack/covtrack/internal/store"
)

// Request carries one upload into the coordinator. Format is optional; when
// empty the content is sniffed.
type Request struct {
	ProjectID string
	Branch    string
	CommitSHA string
	Format    string
	Content   []byte
}

// Ingestor is the aggregation coordinator. It is safe for concurrent use:
// uploads to different projects proceed fully in parallel, uploads to the
// same project+branch serialize at the commit step.
type Ingestor struct {
	store store.Store
	locks *keyedMutex
	now   func() time.Time
}

// New creates an Ingestor on top of a store.
func New(s store.Store) *Ingestor {
	return &Ingestor{
		store: s,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

var errEmptyUpload = &parser.ParseError{Format: "upload", Reason: "empty report content"}

// Ingest parses, canonicalizes, validates and commits one uploaded report.
// The returned report is immutable and already visible to readers. The
// context cancels the upload cleanly at any point before the commit step;
// the commit itself is a short non-cancellable critical section.
func (ing *Ingestor) Ingest(ctx context.Context, req Request) (*model.CoverageReport, error) {
	if req.ProjectID == "" {
		return nil, errors.New("project id is required")
	}
	if req.Branch == "" {
		return nil, errors.New("branch is required")
	}
	if len(req.Content) == 0 {
		return nil, errEmptyUpload
	}

	// Parsing.
	files, format, err := parser.Parse(req.Format, req.Content)
	if err != nil {
		logger.Debugf("upload rejected for project %s: %v", req.ProjectID, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Validated.
	rep, err := report.Build(report.Meta{
		ProjectID: req.ProjectID,
		Branch:    req.Branch,
		CommitSHA: req.CommitSHA,
		Format:    format,
	}, files)
	if err != nil {
		logger.Errorf("validation failed for project %s: %v", req.ProjectID, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Committing.
	unlock, err := ing.locks.lock(ctx, branchLockKey(req.ProjectID, req.Branch))
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := ing.now()
	rep.ID = uuid.NewString()
	rep.UploadedAt = now
	for i := range rep.Files {
		rep.Files[i].ReportID = rep.ID
	}

	snap := &model.TrendSnapshot{
		ProjectID:       rep.ProjectID,
		ReportID:        rep.ID,
		Branch:          rep.Branch,
		RecordedAt:      now,
		CoveragePercent: metrics.Round1(metrics.Percentage(rep.LinesCovered, rep.LinesTotal)),
		LinesCovered:    rep.LinesCovered,
		LinesTotal:      rep.LinesTotal,
	}

	// The commit is not cancellable: all three writes land or none do.
	if err := ing.store.Commit(context.WithoutCancel(ctx), rep, snap); err != nil {
		return nil, &CommitError{Err: err}
	}

	logger.Infof("committed report %s for project %s branch %s: %s%% (%d/%d lines)",
		rep.ID, rep.ProjectID, rep.Branch,
		metrics.FormatPercent(metrics.Percentage(rep.LinesCovered, rep.LinesTotal)),
		rep.LinesCovered, rep.LinesTotal)
	return rep, nil
}

// CurrentReport returns the latest committed report for a branch.
func (ing *Ingestor) CurrentReport(ctx context.Context, projectID, branch string) (*model.CoverageReport, error) {
	return ing.store.GetCurrentReport(ctx, projectID, branch)
}

// Trend returns the snapshot series for a branch within [from, to].
func (ing *Ingestor) Trend(ctx context.Context, projectID, branch string, from, to time.Time) ([]model.TrendSnapshot, error) {
	return ing.store.GetTrend(ctx, projectID, branch, from, to)
}

// FileDetail returns one file's line table from a committed report. Every
// line number present in the result is executable; absence means not
// executable.
func (ing *Ingestor) FileDetail(ctx context.Context, reportID, path string) (*model.FileCoverage, error) {
	return ing.store.GetFileDetail(ctx, reportID, path)
}

func branchLockKey(projectID, branch string) string {
	return projectID + "\x00" + branch
}
