package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/interfaces"
	"github.com/amitsh06/leadgen/internal/models"
)

// Runner executes the scraping pipeline for a single job: collect
// listings, then optionally discover emails and generate outreach
// templates. The scrape stage is fatal on error; the enrichment stages
// skip failing businesses and count them as warnings.
type Runner struct {
	scraper   interfaces.ListingScraper
	emails    interfaces.EmailFinder
	templates interfaces.TemplateGenerator
	archive   interfaces.JobArchive
	logger    arbor.ILogger
}

// NewRunner wires the pipeline stages. archive may be nil, in which case
// finished jobs are not persisted.
func NewRunner(scraper interfaces.ListingScraper, emails interfaces.EmailFinder, templates interfaces.TemplateGenerator, archive interfaces.JobArchive, logger arbor.ILogger) *Runner {
	return &Runner{
		scraper:   scraper,
		emails:    emails,
		templates: templates,
		archive:   archive,
		logger:    logger,
	}
}

// stageSpan maps a stage-relative fraction into the job-wide progress
// range [lo, hi].
type stageSpan struct {
	lo, hi float64
}

func (s stageSpan) blend(fraction float64) float64 {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return s.lo + fraction*(s.hi-s.lo)
}

// spans splits [0,1] evenly across the enabled stages
func spans(opts models.JobOptions) (scrape, email, template stageSpan) {
	n := 1.0
	if opts.FindEmails {
		n++
	}
	if opts.GenerateTemplates {
		n++
	}

	next := 0.0
	width := 1.0 / n

	scrape = stageSpan{lo: next, hi: next + width}
	next += width
	if opts.FindEmails {
		email = stageSpan{lo: next, hi: next + width}
		next += width
	}
	if opts.GenerateTemplates {
		template = stageSpan{lo: next, hi: next + width}
	}
	return scrape, email, template
}

// Run drives the full pipeline for one job. It transitions the job to
// running, executes the enabled stages, and always leaves the job in a
// terminal state before returning.
func (r *Runner) Run(ctx context.Context, job *models.Job) {
	if err := job.MarkRunning(); err != nil {
		r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Skipping job that already started")
		return
	}

	r.logger.Info().
		Str("job_id", job.ID).
		Str("query", job.Query).
		Str("location", job.Location).
		Int("max_results", job.MaxCount).
		Bool("find_emails", job.Options.FindEmails).
		Bool("generate_templates", job.Options.GenerateTemplates).
		Msg("Job started")

	defer r.persist(job)

	scrapeSpan, emailSpan, templateSpan := spans(job.Options)

	store := job.Results()
	if err := r.runScrapeStage(ctx, job, store, scrapeSpan); err != nil {
		r.failJob(job, err)
		return
	}
	store.Seal()

	total := store.Len()
	job.SetProgress(scrapeSpan.hi, fmt.Sprintf("Found %d businesses", total))

	if job.Options.FindEmails {
		if err := r.runEmailStage(ctx, job, store, emailSpan); err != nil {
			r.failJob(job, err)
			return
		}
	}

	if job.Options.GenerateTemplates {
		if err := r.runTemplateStage(ctx, job, store, templateSpan); err != nil {
			r.failJob(job, err)
			return
		}
	}

	job.MarkCompleted()

	view := job.Snapshot()
	r.logger.Info().
		Str("job_id", job.ID).
		Int("results", view.ResultCount).
		Int("warnings", view.Warnings).
		Msg("Job completed")
}

func (r *Runner) runScrapeStage(ctx context.Context, job *models.Job, store *models.ResultStore, span stageSpan) error {
	job.SetProgress(span.lo, "Scraping listings")

	progress := func(fraction float64, message string) {
		job.SetProgress(span.blend(fraction), message)
	}

	businesses, err := r.scraper.Scrape(ctx, job.Query, job.Location, job.MaxCount, progress)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return models.NewFatalStageError("scrape", err)
	}

	for _, b := range businesses {
		store.Append(b)
	}
	return nil
}

func (r *Runner) runEmailStage(ctx context.Context, job *models.Job, store *models.ResultStore, span stageSpan) error {
	total := store.Len()
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		b := store.At(i)
		job.SetProgress(span.blend(float64(i)/float64(total)),
			fmt.Sprintf("Finding emails (%d/%d): %s", i+1, total, b.Name))

		emails, primary, err := r.emails.FindEmails(ctx, b)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			job.AddWarning()
			r.logger.Warn().Err(err).
				Str("job_id", job.ID).
				Str("business", b.Name).
				Msg("Email discovery failed, skipping")
			continue
		}
		store.SetEmails(i, emails, primary)
	}

	job.SetProgress(span.hi, "Email discovery finished")
	return nil
}

func (r *Runner) runTemplateStage(ctx context.Context, job *models.Job, store *models.ResultStore, span stageSpan) error {
	total := store.Len()
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Every business gets a template, with or without a discovered
		// email, so exports are usable for manual outreach too.
		b := store.At(i)
		job.SetProgress(span.blend(float64(i)/float64(total)),
			fmt.Sprintf("Writing outreach templates (%d/%d)", i+1, total))

		template, err := r.templates.Generate(ctx, b)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			job.AddWarning()
			r.logger.Warn().Err(err).
				Str("job_id", job.ID).
				Str("business", b.Name).
				Msg("Template generation failed, skipping")
			continue
		}
		store.SetTemplate(i, template)
	}

	job.SetProgress(span.hi, "Templates finished")
	return nil
}

func (r *Runner) failJob(job *models.Job, err error) {
	message := err.Error()
	if errors.Is(err, context.Canceled) {
		message = "cancelled"
	}
	job.MarkFailed(message)

	r.logger.Error().Err(err).
		Str("job_id", job.ID).
		Int("partial_results", job.Results().Len()).
		Msg("Job failed")
}

// persist writes the terminal job and whatever results it accumulated to
// the archive. Uses a fresh context so a cancelled job still archives.
func (r *Runner) persist(job *models.Job) {
	if r.archive == nil {
		return
	}

	view := job.Snapshot()
	if !view.Status.IsTerminal() {
		return
	}

	record := &interfaces.ArchivedJob{
		ID:         view.ID,
		Query:      view.Query,
		Location:   view.Location,
		Status:     view.Status,
		Message:    view.Message,
		Progress:   view.Progress,
		Warnings:   view.Warnings,
		Incomplete: view.Status == models.JobStatusFailed,
		CreatedAt:  view.CreatedAt,
		Businesses: job.Results().Snapshot(),
	}
	if view.CompletedAt != nil {
		record.CompletedAt = *view.CompletedAt
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.archive.Save(ctx, record); err != nil {
		r.logger.Warn().Err(err).Str("job_id", view.ID).Msg("Failed to archive finished job")
	}
}
