// Package server is the HTTP surface over the ingestion engine: report
// upload, current-report and trend reads, file detail for heatmaps and the
// coverage badge. The engine does the work; handlers only translate.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/covtrack/covtrack/internal/ingest"
	"github.com/covtrack/covtrack/internal/metrics"
	"github.com/covtrack/covtrack/internal/model"
	"github.com/covtrack/covtrack/internal/trend"

	covbadge "github.com/covtrack/covtrack/internal/badge"
	"github.com/covtrack/covtrack/internal/store"
)

// maxUploadBytes caps report uploads; large monorepo LCOV files stay well
// under this.
const maxUploadBytes = 64 << 20

// Handler bundles the HTTP layer's dependencies.
type Handler struct {
	ingestor *ingest.Ingestor
	store    store.Store
}

// NewHandler creates a Handler over an ingestor and its backing store.
func NewHandler(ing *ingest.Ingestor, st store.Store) *Handler {
	return &Handler{ingestor: ing, store: st}
}

// Router builds the chi router with all engine routes.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", h.Healthz)

	r.Post("/api/projects/{projectID}/reports", h.Upload)
	r.Get("/api/projects/{projectID}/reports/current", h.CurrentReport)
	r.Get("/api/projects/{projectID}/trend", h.Trend)
	r.Get("/api/projects/{projectID}/trend/latest", h.LatestPerBranch)
	r.Get("/api/reports/{reportID}/files", h.FileDetailEndpoint)
	r.Get("/projects/{projectID}/badge.svg", h.Badge)

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code, msg string, status int) {
	var resp ErrorResponse
	resp.Error.Code, resp.Error.Message = code, msg
	writeJSON(w, status, resp)
}

// writeEngineErr maps the engine's error taxonomy onto HTTP statuses.
func writeEngineErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, "NOT_FOUND", err.Error(), http.StatusNotFound)
	case errors.Is(err, ingest.ErrLockTimeout):
		writeErr(w, "LOCK_TIMEOUT", err.Error(), http.StatusServiceUnavailable)
	case ingest.Rejected(err):
		writeErr(w, "INVALID_REPORT", err.Error(), http.StatusBadRequest)
	default:
		writeErr(w, "INTERNAL", err.Error(), http.StatusInternalServerError)
	}
}

// Healthz returns 200 OK for liveness probes.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Upload handles POST /api/projects/{projectID}/reports. The raw report is
// the request body; branch, commit and format come from query parameters.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	branch := r.URL.Query().Get("branch")
	if branch == "" {
		branch = h.defaultBranch(r, projectID)
	}

	content, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		writeErr(w, "BAD_REQUEST", "failed to read request body", http.StatusBadRequest)
		return
	}

	rep, err := h.ingestor.Ingest(r.Context(), ingest.Request{
		ProjectID: projectID,
		Branch:    branch,
		CommitSHA: r.URL.Query().Get("commit"),
		Format:    r.URL.Query().Get("format"),
		Content:   content,
	})
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summarize(rep))
}

// CurrentReport handles GET /api/projects/{projectID}/reports/current.
func (h *Handler) CurrentReport(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	branch := r.URL.Query().Get("branch")
	if branch == "" {
		branch = h.defaultBranch(r, projectID)
	}

	rep, err := h.ingestor.CurrentReport(r.Context(), projectID, branch)
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(rep))
}

// Trend handles GET /api/projects/{projectID}/trend. The range defaults to
// the last 30 days; from/to accept RFC 3339 timestamps.
func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	branch := r.URL.Query().Get("branch")
	if branch == "" {
		branch = h.defaultBranch(r, projectID)
	}

	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErr(w, "BAD_REQUEST", "invalid from timestamp", http.StatusBadRequest)
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErr(w, "BAD_REQUEST", "invalid to timestamp", http.StatusBadRequest)
			return
		}
		to = t
	}

	snaps, err := h.ingestor.Trend(r.Context(), projectID, branch, from, to)
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TrendResponse{
		ProjectID: projectID,
		Branch:    branch,
		Direction: trend.DirectionOf(snaps),
		Snapshots: snaps,
	})
}

// LatestPerBranch handles GET /api/projects/{projectID}/trend/latest.
func (h *Handler) LatestPerBranch(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.store.LatestSnapshots(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// FileDetailEndpoint handles GET /api/reports/{reportID}/files?path=...
func (h *Handler) FileDetailEndpoint(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeErr(w, "BAD_REQUEST", "path query parameter is required", http.StatusBadRequest)
		return
	}

	fc, err := h.ingestor.FileDetail(r.Context(), chi.URLParam(r, "reportID"), path)
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FileDetail{
		ReportID:        fc.ReportID,
		Path:            fc.Path,
		CoveragePercent: metrics.FormatPercent(metrics.Percentage(fc.LinesCovered, fc.LinesTotal)),
		LinesCovered:    fc.LinesCovered,
		LinesTotal:      fc.LinesTotal,
		Lines:           fc.Lines,
		Gaps:            trend.UncoveredGaps(fc),
	})
}

// Badge handles GET /projects/{projectID}/badge.svg. The value always equals
// the current report's computed percentage, so identical state yields a
// byte-identical badge.
func (h *Handler) Badge(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	branch := r.URL.Query().Get("branch")
	if branch == "" {
		branch = h.defaultBranch(r, projectID)
	}

	rep, err := h.ingestor.CurrentReport(r.Context(), projectID, branch)
	if err != nil {
		writeEngineErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "max-age=300")
	_, _ = w.Write([]byte(covbadge.Coverage(metrics.Percentage(rep.LinesCovered, rep.LinesTotal))))
}

// defaultBranch resolves the project's configured default branch, falling
// back to "main" for projects the store does not know yet.
func (h *Handler) defaultBranch(r *http.Request, projectID string) string {
	p, err := h.store.GetProject(r.Context(), projectID)
	if err != nil || p.DefaultBranch == "" {
		return "main"
	}
	return p.DefaultBranch
}

func summarize(rep *model.CoverageReport) ReportSummary {
	percent := metrics.Percentage(rep.LinesCovered, rep.LinesTotal)
	out := ReportSummary{
		ID:              rep.ID,
		ProjectID:       rep.ProjectID,
		Branch:          rep.Branch,
		CommitSHA:       rep.CommitSHA,
		Format:          rep.Format,
		UploadedAt:      rep.UploadedAt,
		CoveragePercent: metrics.FormatPercent(percent),
		CoverageColor:   metrics.CoverageColor(percent),
		LinesCovered:    rep.LinesCovered,
		LinesTotal:      rep.LinesTotal,
		BranchesCovered: rep.BranchesCovered,
		BranchesTotal:   rep.BranchesTotal,
		Distribution:    trend.Distribute(rep.Files),
	}
	for i := range rep.Files {
		f := &rep.Files[i]
		out.Files = append(out.Files, FileSummary{
			Path:            f.Path,
			CoveragePercent: metrics.FormatPercent(metrics.Percentage(f.LinesCovered, f.LinesTotal)),
			LinesCovered:    f.LinesCovered,
			LinesTotal:      f.LinesTotal,
		})
	}
	return out
}
