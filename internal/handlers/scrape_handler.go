package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/jobs"
	"github.com/amitsh06/leadgen/internal/models"
)

// ScrapeHandler accepts new scrape jobs
type ScrapeHandler struct {
	scheduler *jobs.Scheduler
	logger    arbor.ILogger
}

// NewScrapeHandler creates the scrape submission handler
func NewScrapeHandler(scheduler *jobs.Scheduler, logger arbor.ILogger) *ScrapeHandler {
	return &ScrapeHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// SubmitHandler handles POST /api/scrape. Validation happens synchronously;
// on success the job is queued and its snapshot returned immediately.
func (h *ScrapeHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req jobs.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	job, err := h.scheduler.Submit(req)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			WriteError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Job submission failed")
		WriteError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	WriteJSON(w, http.StatusAccepted, job.Snapshot())
}
