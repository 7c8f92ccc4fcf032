package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/app"
	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/export"
	"github.com/amitsh06/leadgen/internal/jobs"
	"github.com/amitsh06/leadgen/internal/models"
)

// runOnce executes a single search from the command line without starting
// the HTTP server, writing result files to outDir when the job finishes.
func runOnce(config *common.Config, logger arbor.ILogger, req jobs.ScrapeRequest, outDir string, formats string) error {
	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	job, err := application.Scheduler.Submit(req)
	if err != nil {
		return err
	}

	logger.Info().
		Str("job_id", job.ID).
		Str("query", req.Query).
		Str("location", req.Location).
		Msg("Job submitted, waiting for completion")

	view := waitForJob(job, logger)

	if view.Status == models.JobStatusFailed && view.ResultCount == 0 {
		return fmt.Errorf("job failed: %s", view.Message)
	}

	ex := &export.Export{
		JobID:      view.ID,
		Query:      view.Query,
		Location:   view.Location,
		Status:     view.Status,
		Incomplete: view.Status == models.JobStatusFailed,
		ExportedAt: time.Now().UTC(),
		Results:    job.Results().Snapshot(),
	}
	ex.Count = len(ex.Results)

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	base := fmt.Sprintf("leads_%s_%s", slug(view.Query), time.Now().Format("20060102-150405"))
	for _, format := range strings.Split(formats, ",") {
		format = strings.TrimSpace(strings.ToLower(format))
		if format == "" {
			continue
		}
		path, err := writeExportFile(outDir, base, format, ex, config.Templates.MaxLength)
		if err != nil {
			return err
		}
		logger.Info().Str("file", path).Str("format", format).Msg("Results written")
	}

	if ex.Incomplete {
		logger.Warn().Str("message", view.Message).Msg("Job did not finish cleanly, results are partial")
	}
	return nil
}

// waitForJob polls until the job reaches a terminal state, logging progress
// transitions along the way.
func waitForJob(job *models.Job, logger arbor.ILogger) models.JobView {
	lastMessage := ""
	for {
		view := job.Snapshot()
		if view.Message != lastMessage {
			logger.Info().
				Str("status", string(view.Status)).
				Str("progress", fmt.Sprintf("%.0f%%", view.Progress*100)).
				Msg(view.Message)
			lastMessage = view.Message
		}
		if view.Status.IsTerminal() {
			return view
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func writeExportFile(dir, base, format string, ex *export.Export, maxTemplateLength int) (string, error) {
	var ext string
	switch format {
	case "json":
		ext = ".json"
	case "csv":
		ext = ".csv"
	case "excel", "xlsx":
		ext = ".xlsx"
	default:
		return "", fmt.Errorf("unsupported output format %q (expected json, csv or excel)", format)
	}

	path := filepath.Join(dir, base+ext)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	switch ext {
	case ".json":
		err = export.WriteJSON(file, ex)
	case ".csv":
		err = export.WriteCSV(file, ex, maxTemplateLength)
	case ".xlsx":
		err = export.WriteExcel(file, ex, maxTemplateLength)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// slug reduces a query to a filesystem-friendly fragment
func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "results"
	}
	return b.String()
}
