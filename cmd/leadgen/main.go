package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/app"
	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/jobs"
	"github.com/amitsh06/leadgen/internal/server"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// One-shot mode: run a single search without the HTTP server
	runFlag      = flag.Bool("run", false, "Run a single search and exit (no server)")
	runQuery     = flag.String("query", "", "Search query for -run mode (e.g. \"coffee shops\")")
	runLocation  = flag.String("location", "", "Search location for -run mode (e.g. \"Portland, OR\")")
	runMax       = flag.Int("max", 0, "Maximum results for -run mode (default from config)")
	runEmails    = flag.Bool("find-emails", false, "Discover emails on business websites in -run mode")
	runTemplates = flag.Bool("templates", false, "Generate outreach templates in -run mode")
	runOut       = flag.String("out", "./data/exports", "Output directory for -run mode")
	runFormats   = flag.String("formats", "json,csv", "Comma-separated output formats for -run mode (json, csv, excel)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("LeadGen version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Shorthand takes precedence
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("leadgen.toml"); err == nil {
			configFiles = append(configFiles, "leadgen.toml")
		} else if _, err := os.Stat("deployments/local/leadgen.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/leadgen.toml")
		}
	}

	// Load order: defaults -> config files -> env -> CLI flags
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, finalPort, *serverHost)

	common.InstallCrashHandler("./logs")
	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Str("llm_provider", config.LLM.Provider).
		Msg("Application configuration loaded")

	if *runFlag {
		req := jobs.ScrapeRequest{
			Query:             *runQuery,
			Location:          *runLocation,
			MaxResults:        *runMax,
			FindEmails:        *runEmails,
			GenerateTemplates: *runTemplates,
		}
		if err := runOnce(config, logger, req, *runOut, *runFormats); err != nil {
			logger.Fatal().Err(err).Msg("One-shot run failed")
			os.Exit(1)
		}
		return
	}

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	srv := server.New(application)

	common.SafeGo(logger, "httpServer", func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	})

	// Give goroutine a moment to start
	time.Sleep(100 * time.Millisecond)

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	logger.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}
