package server

import (
	"net/http"
	"strings"

	"github.com/amitsh06/leadgen/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Job submission and listing
	mux.HandleFunc("/api/scrape", s.app.ScrapeHandler.SubmitHandler) // POST - start a scrape job
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)    // GET - list jobs, newest first
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes)                  // GET /{id}, POST /{id}/cancel, GET /{id}/download/{format}

	// Archived history
	mux.HandleFunc("/api/archive", s.app.JobHandler.ArchiveListHandler) // GET - archived finished jobs

	// System endpoints
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)

	// Catch-all for unknown API routes
	mux.HandleFunc("/api/", s.notFoundHandler)

	return mux
}

// handleJobRoutes dispatches /api/jobs/{id} and its subpaths
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) == 0 || parts[0] == "" {
		handlers.WriteError(w, http.StatusBadRequest, "job ID required")
		return
	}
	jobID := parts[0]

	switch {
	case len(parts) == 1:
		s.app.JobHandler.GetJobHandler(w, r, jobID)

	case len(parts) == 2 && parts[1] == "cancel":
		s.app.JobHandler.CancelHandler(w, r, jobID)

	case len(parts) == 3 && parts[1] == "download":
		s.app.JobHandler.DownloadHandler(w, r, jobID, parts[2])

	default:
		handlers.WriteError(w, http.StatusNotFound, "unknown job route")
	}
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusNotFound, "endpoint not found")
}
