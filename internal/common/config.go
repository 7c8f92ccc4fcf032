package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Scraper     ScraperConfig   `toml:"scraper"`
	Emails      EmailsConfig    `toml:"emails"`
	Templates   TemplatesConfig `toml:"templates"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// SchedulerConfig controls job dispatch and retention
type SchedulerConfig struct {
	MaxConcurrent     int    `toml:"max_concurrent"`     // Worker slots; jobs beyond this wait in queued state
	MaxResults        int    `toml:"max_results"`        // Upper bound accepted for a single job request
	RetentionSchedule string `toml:"retention_schedule"` // Cron schedule for pruning finished jobs
	Retention         string `toml:"retention"`          // e.g. "24h" - how long finished jobs stay in memory
	ArchiveRetention  string `toml:"archive_retention"`  // e.g. "720h" - how long archived jobs stay on disk
}

// ScraperConfig contains browser automation settings for listing collection
type ScraperConfig struct {
	Headless          bool          `toml:"headless"`
	DisableGPU        bool          `toml:"disable_gpu"`
	NoSandbox         bool          `toml:"no_sandbox"`
	UserAgent         string        `toml:"user_agent"`
	Language          string        `toml:"language"`            // Accept-Language sent to the listing site
	NavigationTimeout time.Duration `toml:"navigation_timeout"`  // Per-navigation deadline
	RenderWait        time.Duration `toml:"render_wait"`         // Time to let JavaScript settle after navigation
	ScrollPause       time.Duration `toml:"scroll_pause"`        // Pause between result feed scrolls
	MaxScrollAttempts int           `toml:"max_scroll_attempts"` // Give up scrolling after this many rounds without new results
	PlaceDelay        time.Duration `toml:"place_delay"`         // Minimum delay between detail page visits
}

// EmailsConfig contains settings for website email discovery
type EmailsConfig struct {
	MaxPages       int           `toml:"max_pages"`       // Pages fetched per website (homepage + contact pages)
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP timeout per page fetch
	RequestDelay   time.Duration `toml:"request_delay"`   // Minimum delay between fetches
	UserAgent      string        `toml:"user_agent"`
}

// TemplatesConfig controls outreach template generation
type TemplatesConfig struct {
	SenderName    string `toml:"sender_name"`    // Signature used in generated templates
	SenderCompany string `toml:"sender_company"` // Company line used in generated templates
	MaxLength     int    `toml:"max_length"`     // Templates longer than this are truncated on export
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// LLM provider identifiers
const (
	LLMProviderClaude = "claude"
	LLMProviderGemini = "gemini"
	LLMProviderNone   = "none"
)

type LLMConfig struct {
	Provider string `toml:"provider"` // "claude", "gemini", or "none" for canned templates only
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration for the results archive
type BadgerConfig struct {
	Enabled        bool   `toml:"enabled"`          // Archive finished jobs to disk
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns a configuration populated with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Scheduler: SchedulerConfig{
			MaxConcurrent:     3,
			MaxResults:        100,
			RetentionSchedule: "0 */10 * * * *", // Every 10 minutes
			Retention:         "24h",
			ArchiveRetention:  "720h", // 30 days
		},
		Scraper: ScraperConfig{
			Headless:          true,
			DisableGPU:        true,
			NoSandbox:         true,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Language:          "en-US,en;q=0.9",
			NavigationTimeout: 45 * time.Second,
			RenderWait:        3 * time.Second,
			ScrollPause:       1500 * time.Millisecond,
			MaxScrollAttempts: 15,
			PlaceDelay:        1 * time.Second,
		},
		Emails: EmailsConfig{
			MaxPages:       3,
			RequestTimeout: 15 * time.Second,
			RequestDelay:   500 * time.Millisecond,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Templates: TemplatesConfig{
			SenderName:    "Your Name",
			SenderCompany: "Your Company",
			MaxLength:     1000,
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-2.0-flash",
			Timeout:     "2m",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   1024,
			Timeout:     "2m",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			Provider: LLMProviderNone,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled:        true,
				Path:           "./data/leadgen",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier files, environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("LEADGEN_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("LEADGEN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("LEADGEN_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if workers := os.Getenv("LEADGEN_MAX_CONCURRENT"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			config.Scheduler.MaxConcurrent = n
		}
	}

	if level := os.Getenv("LEADGEN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// API keys: provider-native variables take precedence over config values
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if provider := os.Getenv("LEADGEN_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}

	if path := os.Getenv("LEADGEN_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// RetentionAge parses the scheduler retention duration, falling back to 24h
func (c *Config) RetentionAge() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.Retention)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// ArchiveRetentionAge parses the on-disk archive retention, falling back
// to 30 days
func (c *Config) ArchiveRetentionAge() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.ArchiveRetention)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// ValidateRetentionSchedule checks that the retention cron expression parses
func ValidateRetentionSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("retention schedule cannot be empty")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	return nil
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
