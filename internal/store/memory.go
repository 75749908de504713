package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/covtrack/covtrack/internal/model"
)

// MemoryStore is a mutex-guarded in-process Store. It backs unit tests and
// the CLI dry-run mode; the gorm store is the production backend.
type MemoryStore struct {
	mu        sync.RWMutex
	projects  map[string]model.Project
	reports   map[string]*model.CoverageReport
	current   map[string]string // projectID + "\x00" + branch -> reportID
	snapshots []model.TrendSnapshot
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[string]model.Project),
		reports:  make(map[string]*model.CoverageReport),
		current:  make(map[string]string),
	}
}

func branchKey(projectID, branch string) string {
	return projectID + "\x00" + branch
}

func (s *MemoryStore) SaveProject(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = *p
	return nil
}

func (s *MemoryStore) GetProject(_ context.Context, projectID string) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return &p, nil
}

func (s *MemoryStore) Commit(_ context.Context, rep *model.CoverageReport, snap *model.TrendSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[rep.ID]; ok {
		return fmt.Errorf("report %s already committed", rep.ID)
	}
	s.reports[rep.ID] = rep
	s.snapshots = append(s.snapshots, *snap)
	s.current[branchKey(rep.ProjectID, rep.Branch)] = rep.ID
	return nil
}

func (s *MemoryStore) GetReport(_ context.Context, reportID string) (*model.CoverageReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.reports[reportID]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", reportID, ErrNotFound)
	}
	return rep, nil
}

func (s *MemoryStore) GetCurrentReport(_ context.Context, projectID, branch string) (*model.CoverageReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.current[branchKey(projectID, branch)]
	if !ok {
		return nil, fmt.Errorf("project %s branch %s: %w", projectID, branch, ErrNotFound)
	}
	return s.reports[id], nil
}

func (s *MemoryStore) GetFileDetail(_ context.Context, reportID, path string) (*model.FileCoverage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.reports[reportID]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", reportID, ErrNotFound)
	}
	for i := range rep.Files {
		if rep.Files[i].Path == path {
			return &rep.Files[i], nil
		}
	}
	return nil, fmt.Errorf("file %s in report %s: %w", path, reportID, ErrNotFound)
}

func (s *MemoryStore) GetTrend(_ context.Context, projectID, branch string, from, to time.Time) ([]model.TrendSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.TrendSnapshot
	for _, snap := range s.snapshots {
		if snap.ProjectID != projectID || snap.Branch != branch {
			continue
		}
		if snap.RecordedAt.Before(from) || snap.RecordedAt.After(to) {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *MemoryStore) LatestSnapshots(_ context.Context, projectID string) ([]model.TrendSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]model.TrendSnapshot)
	var order []string
	for _, snap := range s.snapshots {
		if snap.ProjectID != projectID {
			continue
		}
		if _, ok := latest[snap.Branch]; !ok {
			order = append(order, snap.Branch)
		}
		latest[snap.Branch] = snap
	}
	out := make([]model.TrendSnapshot, 0, len(latest))
	for _, branch := range order {
		out = append(out, latest[branch])
	}
	return out, nil
}
