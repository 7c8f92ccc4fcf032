package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/models"
)

// ScrapeRequest is the validated payload for starting a job
type ScrapeRequest struct {
	Query             string `json:"query" validate:"required"`
	Location          string `json:"location" validate:"required"`
	MaxResults        int    `json:"max_results" validate:"omitempty,min=1"`
	FindEmails        bool   `json:"include_emails"`
	GenerateTemplates bool   `json:"include_email_templates"`
}

// Scheduler validates scrape requests, registers jobs, and dispatches
// them to the runner under a bounded number of worker slots. Submissions
// beyond the bound stay queued until a slot frees up. Each job is
// dispatched exactly once.
type Scheduler struct {
	registry *Registry
	runner   *Runner
	config   *common.Config
	logger   arbor.ILogger
	validate *validator.Validate

	slots chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
	cron       *cron.Cron
}

// NewScheduler creates a scheduler with the configured concurrency bound
func NewScheduler(registry *Registry, runner *Runner, config *common.Config, logger arbor.ILogger) *Scheduler {
	maxConcurrent := config.Scheduler.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		registry:   registry,
		runner:     runner,
		config:     config,
		logger:     logger,
		validate:   validator.New(),
		slots:      make(chan struct{}, maxConcurrent),
		cancels:    make(map[string]context.CancelFunc),
		rootCtx:    ctx,
		rootCancel: cancel,
	}
}

// Submit validates the request synchronously, registers a queued job, and
// hands it to a background dispatcher. The returned job is already visible
// in the registry when this returns.
func (s *Scheduler) Submit(req ScrapeRequest) (*models.Job, error) {
	req.Query = strings.TrimSpace(req.Query)
	req.Location = strings.TrimSpace(req.Location)

	if err := s.validate.Struct(req); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			field := strings.ToLower(errs[0].Field())
			return nil, models.NewValidationError(field, "failed on '"+errs[0].Tag()+"' constraint")
		}
		return nil, models.NewValidationError("", err.Error())
	}

	if req.MaxResults == 0 {
		req.MaxResults = 20
	}
	if ceiling := s.config.Scheduler.MaxResults; ceiling > 0 && req.MaxResults > ceiling {
		return nil, models.NewValidationError("max_results", "exceeds configured maximum")
	}

	job := models.NewJob(common.NewJobID(), req.Query, req.Location, req.MaxResults, models.JobOptions{
		FindEmails:        req.FindEmails,
		GenerateTemplates: req.GenerateTemplates,
	})
	s.registry.Add(job)

	jobCtx, cancel := context.WithCancel(s.rootCtx)
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	s.logger.Info().
		Str("job_id", job.ID).
		Str("query", job.Query).
		Str("location", job.Location).
		Msg("Job accepted")

	s.wg.Add(1)
	go s.dispatch(jobCtx, job)

	return job, nil
}

// dispatch waits for a worker slot, then runs the job. The job stays in
// the queued state until a slot is acquired.
func (s *Scheduler) dispatch(ctx context.Context, job *models.Job) {
	defer s.wg.Done()
	defer s.releaseCancel(job.ID)

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		job.MarkFailed("cancelled")
		return
	}
	defer func() { <-s.slots }()

	s.runner.Run(ctx, job)
}

// Cancel requests cooperative cancellation of a job. Queued jobs fail
// immediately; running jobs stop at the next business boundary.
func (s *Scheduler) Cancel(id string) error {
	if _, err := s.registry.Get(id); err != nil {
		return err
	}

	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()

	if ok {
		cancel()
		s.logger.Info().Str("job_id", id).Msg("Job cancellation requested")
	}
	return nil
}

func (s *Scheduler) releaseCancel(id string) {
	s.mu.Lock()
	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}
	s.mu.Unlock()
}

// StartRetentionJanitor schedules periodic pruning of finished jobs from
// the in-memory registry. Archived copies remain downloadable.
func (s *Scheduler) StartRetentionJanitor() error {
	schedule := s.config.Scheduler.RetentionSchedule
	if err := common.ValidateRetentionSchedule(schedule); err != nil {
		return err
	}

	s.cron = cron.New(cron.WithSeconds())
	_, err := s.cron.AddFunc(schedule, func() {
		cutoff := time.Now().Add(-s.config.RetentionAge())
		removed := s.registry.PruneFinished(cutoff)
		if len(removed) > 0 {
			s.logger.Info().
				Int("pruned", len(removed)).
				Int("remaining", s.registry.Count()).
				Msg("Pruned finished jobs from registry")
		}

		if s.runner.archive != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			archiveCutoff := time.Now().Add(-s.config.ArchiveRetentionAge())
			deleted, err := s.runner.archive.DeleteOlderThan(ctx, archiveCutoff)
			if err != nil {
				s.logger.Warn().Err(err).Msg("Archive pruning failed")
			} else if deleted > 0 {
				s.logger.Info().Int("deleted", deleted).Msg("Pruned expired archive records")
			}
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", schedule).Msg("Retention janitor started")
	return nil
}

// Stop cancels all in-flight jobs and waits for dispatchers to drain
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.rootCancel()
	s.wg.Wait()
}
