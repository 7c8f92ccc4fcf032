package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/export"
	"github.com/amitsh06/leadgen/internal/interfaces"
	"github.com/amitsh06/leadgen/internal/jobs"
	"github.com/amitsh06/leadgen/internal/models"
)

// IncompleteHeader flags downloads that carry partial results from a
// failed job.
const IncompleteHeader = "X-Leadgen-Incomplete"

var filenameSafeRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// JobHandler serves job status, listings, cancellation, and downloads.
// Downloads fall back to the archive once a job has been pruned from the
// in-memory registry.
type JobHandler struct {
	registry  *jobs.Registry
	scheduler *jobs.Scheduler
	archive   interfaces.JobArchive
	config    *common.Config
	logger    arbor.ILogger
}

// NewJobHandler creates the job API handler. archive may be nil.
func NewJobHandler(registry *jobs.Registry, scheduler *jobs.Scheduler, archive interfaces.JobArchive, config *common.Config, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		registry:  registry,
		scheduler: scheduler,
		archive:   archive,
		config:    config,
		logger:    logger,
	}
}

// ListJobsHandler handles GET /api/jobs, newest submissions first
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	views := h.registry.List()
	// Registry order is oldest first; listings read better newest first
	for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
		views[i], views[j] = views[j], views[i]
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(views),
		"jobs":  views,
	})
}

// GetJobHandler handles GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	job, err := h.registry.Get(jobID)
	if err == nil {
		WriteJSON(w, http.StatusOK, job.Snapshot())
		return
	}

	// Pruned jobs may still exist in the archive
	if archived := h.archivedJob(r.Context(), jobID); archived != nil {
		WriteJSON(w, http.StatusOK, archivedView(archived))
		return
	}

	WriteError(w, http.StatusNotFound, err.Error())
}

// CancelHandler handles POST /api/jobs/{id}/cancel
func (h *JobHandler) CancelHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.scheduler.Cancel(jobID); err != nil {
		if models.IsNotFound(err) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteSuccess(w, "cancellation requested")
}

// DownloadHandler handles GET /api/jobs/{id}/download/{format}. Completed
// jobs download normally; failed jobs serve their partial results with an
// incomplete marker. Jobs still queued or running return 409.
func (h *JobHandler) DownloadHandler(w http.ResponseWriter, r *http.Request, jobID, format string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	data := h.exportForJob(r.Context(), jobID)
	if data == nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("job not found: %s", jobID))
		return
	}
	if !data.Status.IsTerminal() {
		WriteError(w, http.StatusConflict, fmt.Sprintf("job %s is still %s", jobID, data.Status))
		return
	}

	if data.Incomplete {
		w.Header().Set(IncompleteHeader, "true")
	}

	filename := downloadFilename(data.Query, jobID)
	maxTemplate := h.config.Templates.MaxLength

	var err error
	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.json"`)
		err = export.WriteJSON(w, data)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.csv"`)
		err = export.WriteCSV(w, data, maxTemplate)
	case "excel":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.xlsx"`)
		err = export.WriteExcel(w, data, maxTemplate)
	default:
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q: use json, csv, or excel", format))
		return
	}

	if err != nil {
		// Headers are already sent; log and give up on this response
		h.logger.Error().Err(err).Str("job_id", jobID).Str("format", format).Msg("Download serialization failed")
	}
}

// ArchiveListHandler handles GET /api/archive
func (h *JobHandler) ArchiveListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if h.archive == nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"count": 0, "jobs": []interface{}{}})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	archived, err := h.archive.List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Archive listing failed")
		WriteError(w, http.StatusInternalServerError, "failed to list archive")
		return
	}

	views := make([]models.JobView, 0, len(archived))
	for _, record := range archived {
		views = append(views, archivedView(record))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(views),
		"jobs":  views,
	})
}

// exportForJob builds the download envelope from the registry, falling
// back to the archive for pruned jobs.
func (h *JobHandler) exportForJob(ctx context.Context, jobID string) *export.Export {
	if job, err := h.registry.Get(jobID); err == nil {
		view := job.Snapshot()
		return &export.Export{
			JobID:      view.ID,
			Query:      view.Query,
			Location:   view.Location,
			Status:     view.Status,
			Incomplete: view.Status == models.JobStatusFailed,
			Count:      view.ResultCount,
			ExportedAt: time.Now(),
			Results:    job.Results().Snapshot(),
		}
	}

	if archived := h.archivedJob(ctx, jobID); archived != nil {
		return &export.Export{
			JobID:      archived.ID,
			Query:      archived.Query,
			Location:   archived.Location,
			Status:     archived.Status,
			Incomplete: archived.Incomplete,
			Count:      len(archived.Businesses),
			ExportedAt: time.Now(),
			Results:    archived.Businesses,
		}
	}
	return nil
}

func (h *JobHandler) archivedJob(ctx context.Context, jobID string) *interfaces.ArchivedJob {
	if h.archive == nil {
		return nil
	}
	archived, err := h.archive.Get(ctx, jobID)
	if err != nil {
		return nil
	}
	return archived
}

// archivedView adapts an archive record to the job view shape
func archivedView(a *interfaces.ArchivedJob) models.JobView {
	view := models.JobView{
		ID:          a.ID,
		Query:       a.Query,
		Location:    a.Location,
		Status:      a.Status,
		Progress:    a.Progress,
		Message:     a.Message,
		Warnings:    a.Warnings,
		ResultCount: len(a.Businesses),
		CreatedAt:   a.CreatedAt,
	}
	if !a.CompletedAt.IsZero() {
		t := a.CompletedAt
		view.CompletedAt = &t
	}
	return view
}

// downloadFilename builds a safe attachment name like
// "leads_coffee_shops_job_1a2b".
func downloadFilename(query, jobID string) string {
	slug := filenameSafeRe.ReplaceAllString(strings.ToLower(query), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "results"
	}
	short := jobID
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("leads_%s_%s", slug, short)
}
