package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/jobs"
	"github.com/amitsh06/leadgen/internal/models"
)

// StatusHandler serves health, version, and aggregate status endpoints
type StatusHandler struct {
	registry  *jobs.Registry
	config    *common.Config
	logger    arbor.ILogger
	startedAt time.Time
}

// NewStatusHandler creates the status handler
func NewStatusHandler(registry *jobs.Registry, config *common.Config, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		registry:  registry,
		config:    config,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// HealthHandler handles GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// VersionHandler handles GET /api/version
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// GetStatusHandler handles GET /api/status with job counts by state
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	counts := map[models.JobStatus]int{}
	for _, view := range h.registry.List() {
		counts[view.Status]++
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"environment":    h.config.Environment,
		"jobs": map[string]int{
			"total":     h.registry.Count(),
			"queued":    counts[models.JobStatusQueued],
			"running":   counts[models.JobStatusRunning],
			"completed": counts[models.JobStatusCompleted],
			"failed":    counts[models.JobStatusFailed],
		},
	})
}
