package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/covtrack/covtrack/internal/model"
)

type projectRow struct {
	ID            string `gorm:"primaryKey;column:id"`
	Name          string `gorm:"column:name"`
	Slug          string `gorm:"uniqueIndex;column:slug"`
	DefaultBranch string `gorm:"column:default_branch"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (projectRow) TableName() string { return "projects" }

type reportRow struct {
	ID              string    `gorm:"primaryKey;column:id"`
	ProjectID       string    `gorm:"index;column:project_id"`
	Branch          string    `gorm:"column:branch"`
	CommitSHA       string    `gorm:"column:commit_sha"`
	Format          string    `gorm:"column:format"`
	UploadedAt      time.Time `gorm:"column:uploaded_at"`
	LinesCovered    int       `gorm:"column:lines_covered"`
	LinesTotal      int       `gorm:"column:lines_total"`
	BranchesCovered int       `gorm:"column:branches_covered"`
	BranchesTotal   int       `gorm:"column:branches_total"`
}

func (reportRow) TableName() string { return "coverage_reports" }

type fileRow struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	ReportID     string `gorm:"index:idx_report_path,unique;column:report_id"`
	Path         string `gorm:"index:idx_report_path,unique;column:file_path"`
	LinesCovered int    `gorm:"column:lines_covered"`
	LinesTotal   int    `gorm:"column:lines_total"`
	LineData     []byte `gorm:"type:jsonb;column:line_data"`
}

func (fileRow) TableName() string { return "file_coverages" }

type snapshotRow struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	ProjectID       string    `gorm:"index:idx_snap_branch;column:project_id"`
	Branch          string    `gorm:"index:idx_snap_branch;column:branch"`
	ReportID        string    `gorm:"column:report_id"`
	RecordedAt      time.Time `gorm:"index;column:recorded_at"`
	CoveragePercent float64   `gorm:"column:coverage_percent"`
	LinesCovered    int       `gorm:"column:lines_covered"`
	LinesTotal      int       `gorm:"column:lines_total"`
}

func (snapshotRow) TableName() string { return "trend_snapshots" }

type currentRow struct {
	ProjectID string `gorm:"primaryKey;column:project_id"`
	Branch    string `gorm:"primaryKey;column:branch"`
	ReportID  string `gorm:"column:report_id"`
	UpdatedAt time.Time
}

func (currentRow) TableName() string { return "current_reports" }

// GormStore is the postgres-backed Store. The three commit writes (report,
// snapshot, current pointer) run inside one database transaction.
type GormStore struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the schema.
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewGormStore(db)
}

// NewGormStore wraps an existing gorm connection and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&projectRow{}, &reportRow{}, &fileRow{}, &snapshotRow{}, &currentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) SaveProject(ctx context.Context, p *model.Project) error {
	row := projectRow{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		DefaultBranch: p.DefaultBranch,
		CreatedAt:     p.CreatedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "slug", "default_branch", "updated_at"}),
	}).Create(&row).Error
}

func (s *GormStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	var row projectRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", projectID).Error; err != nil {
		return nil, translateErr("project "+projectID, err)
	}
	return &model.Project{
		ID:            row.ID,
		Name:          row.Name,
		Slug:          row.Slug,
		DefaultBranch: row.DefaultBranch,
		CreatedAt:     row.CreatedAt,
	}, nil
}

func (s *GormStore) Commit(ctx context.Context, rep *model.CoverageReport, snap *model.TrendSnapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := reportRow{
			ID:              rep.ID,
			ProjectID:       rep.ProjectID,
			Branch:          rep.Branch,
			CommitSHA:       rep.CommitSHA,
			Format:          rep.Format,
			UploadedAt:      rep.UploadedAt,
			LinesCovered:    rep.LinesCovered,
			LinesTotal:      rep.LinesTotal,
			BranchesCovered: rep.BranchesCovered,
			BranchesTotal:   rep.BranchesTotal,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		fileRows := make([]fileRow, 0, len(rep.Files))
		for i := range rep.Files {
			f := &rep.Files[i]
			data, err := json.Marshal(f.Lines)
			if err != nil {
				return err
			}
			fileRows = append(fileRows, fileRow{
				ReportID:     rep.ID,
				Path:         f.Path,
				LinesCovered: f.LinesCovered,
				LinesTotal:   f.LinesTotal,
				LineData:     data,
			})
		}
		if len(fileRows) > 0 {
			if err := tx.CreateInBatches(fileRows, 200).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&snapshotRow{
			ProjectID:       snap.ProjectID,
			Branch:          snap.Branch,
			ReportID:        snap.ReportID,
			RecordedAt:      snap.RecordedAt,
			CoveragePercent: snap.CoveragePercent,
			LinesCovered:    snap.LinesCovered,
			LinesTotal:      snap.LinesTotal,
		}).Error; err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "branch"}},
			DoUpdates: clause.AssignmentColumns([]string{"report_id", "updated_at"}),
		}).Create(&currentRow{
			ProjectID: rep.ProjectID,
			Branch:    rep.Branch,
			ReportID:  rep.ID,
			UpdatedAt: rep.UploadedAt,
		}).Error
	})
}

func (s *GormStore) GetReport(ctx context.Context, reportID string) (*model.CoverageReport, error) {
	var row reportRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", reportID).Error; err != nil {
		return nil, translateErr("report "+reportID, err)
	}
	var fileRows []fileRow
	if err := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("file_path ASC").
		Find(&fileRows).Error; err != nil {
		return nil, err
	}

	rep := &model.CoverageReport{
		ID:              row.ID,
		ProjectID:       row.ProjectID,
		Branch:          row.Branch,
		CommitSHA:       row.CommitSHA,
		Format:          row.Format,
		UploadedAt:      row.UploadedAt,
		LinesCovered:    row.LinesCovered,
		LinesTotal:      row.LinesTotal,
		BranchesCovered: row.BranchesCovered,
		BranchesTotal:   row.BranchesTotal,
	}
	for _, fr := range fileRows {
		fc, err := fileFromRow(fr)
		if err != nil {
			return nil, err
		}
		rep.Files = append(rep.Files, *fc)
	}
	return rep, nil
}

func (s *GormStore) GetCurrentReport(ctx context.Context, projectID, branch string) (*model.CoverageReport, error) {
	var cur currentRow
	err := s.db.WithContext(ctx).
		First(&cur, "project_id = ? AND branch = ?", projectID, branch).Error
	if err != nil {
		return nil, translateErr(fmt.Sprintf("project %s branch %s", projectID, branch), err)
	}
	return s.GetReport(ctx, cur.ReportID)
}

func (s *GormStore) GetFileDetail(ctx context.Context, reportID, path string) (*model.FileCoverage, error) {
	var fr fileRow
	err := s.db.WithContext(ctx).
		First(&fr, "report_id = ? AND file_path = ?", reportID, path).Error
	if err != nil {
		return nil, translateErr(fmt.Sprintf("file %s in report %s", path, reportID), err)
	}
	return fileFromRow(fr)
}

func (s *GormStore) GetTrend(ctx context.Context, projectID, branch string, from, to time.Time) ([]model.TrendSnapshot, error) {
	var rows []snapshotRow
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND branch = ? AND recorded_at >= ? AND recorded_at <= ?",
			projectID, branch, from, to).
		Order("recorded_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.TrendSnapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, snapshotFromRow(r))
	}
	return out, nil
}

func (s *GormStore) LatestSnapshots(ctx context.Context, projectID string) ([]model.TrendSnapshot, error) {
	var rows []snapshotRow
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("recorded_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	latest := make(map[string]snapshotRow)
	var order []string
	for _, r := range rows {
		if _, ok := latest[r.Branch]; !ok {
			order = append(order, r.Branch)
		}
		latest[r.Branch] = r
	}
	out := make([]model.TrendSnapshot, 0, len(latest))
	for _, branch := range order {
		out = append(out, snapshotFromRow(latest[branch]))
	}
	return out, nil
}

func fileFromRow(fr fileRow) (*model.FileCoverage, error) {
	fc := &model.FileCoverage{
		ReportID:     fr.ReportID,
		Path:         fr.Path,
		LinesCovered: fr.LinesCovered,
		LinesTotal:   fr.LinesTotal,
		Lines:        make(map[int]model.LineStatus),
	}
	if len(fr.LineData) > 0 {
		if err := json.Unmarshal(fr.LineData, &fc.Lines); err != nil {
			return nil, fmt.Errorf("corrupt line data for %s: %w", fr.Path, err)
		}
	}
	return fc, nil
}

func snapshotFromRow(r snapshotRow) model.TrendSnapshot {
	return model.TrendSnapshot{
		ProjectID:       r.ProjectID,
		Branch:          r.Branch,
		ReportID:        r.ReportID,
		RecordedAt:      r.RecordedAt,
		CoveragePercent: r.CoveragePercent,
		LinesCovered:    r.LinesCovered,
		LinesTotal:      r.LinesTotal,
	}
}

func translateErr(subject string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", subject, ErrNotFound)
	}
	return err
}
