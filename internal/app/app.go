package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/emails"
	"github.com/amitsh06/leadgen/internal/handlers"
	"github.com/amitsh06/leadgen/internal/interfaces"
	"github.com/amitsh06/leadgen/internal/jobs"
	"github.com/amitsh06/leadgen/internal/llm"
	"github.com/amitsh06/leadgen/internal/scraper"
	badgerstore "github.com/amitsh06/leadgen/internal/storage/badger"
	"github.com/amitsh06/leadgen/internal/templates"
)

// App wires configuration, storage, pipeline services, the scheduler,
// and the HTTP handlers together.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Registry  *jobs.Registry
	Scheduler *jobs.Scheduler

	ScrapeHandler *handlers.ScrapeHandler
	JobHandler    *handlers.JobHandler
	StatusHandler *handlers.StatusHandler

	db         *badgerstore.BadgerDB
	archive    interfaces.JobArchive
	llmService interfaces.LLMService
}

// New builds the application graph. Initialization order: storage, LLM
// provider, pipeline services, scheduler, handlers.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Storage.Badger.Enabled {
		db, err := badgerstore.NewBadgerDB(logger, &cfg.Storage.Badger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.db = db
		a.archive = badgerstore.NewArchiveStorage(db, logger)
	} else {
		logger.Info().Msg("Results archive disabled, finished jobs live in memory only")
	}

	llmService, err := llm.NewLLMService(cfg, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	a.llmService = llmService

	listingScraper := scraper.NewService(&cfg.Scraper, logger)
	emailFinder := emails.NewFinder(&cfg.Emails, logger)
	templateGenerator := templates.NewGenerator(&cfg.Templates, llmService, logger)

	a.Registry = jobs.NewRegistry()
	runner := jobs.NewRunner(listingScraper, emailFinder, templateGenerator, a.archive, logger)
	a.Scheduler = jobs.NewScheduler(a.Registry, runner, cfg, logger)

	if err := a.Scheduler.StartRetentionJanitor(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to start retention janitor: %w", err)
	}

	a.ScrapeHandler = handlers.NewScrapeHandler(a.Scheduler, logger)
	a.JobHandler = handlers.NewJobHandler(a.Registry, a.Scheduler, a.archive, cfg, logger)
	a.StatusHandler = handlers.NewStatusHandler(a.Registry, cfg, logger)

	logger.Info().
		Int("max_concurrent", cfg.Scheduler.MaxConcurrent).
		Str("llm_provider", cfg.LLM.Provider).
		Msg("Application initialized")

	return a, nil
}

// Close shuts down the scheduler and releases storage and LLM resources
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.llmService != nil {
		if err := a.llmService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("LLM service close failed")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}
