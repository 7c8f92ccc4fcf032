package interfaces

import (
	"context"

	"github.com/amitsh06/leadgen/internal/models"
)

// ProgressFunc reports per-item progress from inside a pipeline stage.
// The fraction is relative to the stage (0..1); the message is shown to
// API consumers polling the job.
type ProgressFunc func(fraction float64, message string)

// ListingScraper collects business profiles for a search query from the
// listing site. Returned errors are fatal for the whole job; individual
// unparseable listings are skipped internally.
type ListingScraper interface {
	// Scrape searches for "query in location" and returns up to maxCount
	// businesses. The context cancels browser navigation mid-run.
	Scrape(ctx context.Context, query, location string, maxCount int, progress ProgressFunc) ([]models.Business, error)
}

// EmailFinder discovers contact emails for a business website.
type EmailFinder interface {
	// FindEmails fetches pages from the business website and returns the
	// discovered addresses plus the best candidate. When nothing is found
	// but the site has a usable domain, a guessed address marked with a
	// "(generated)" suffix is returned as primary with an empty emails
	// slice. Errors here are per-item, never fatal for the job.
	FindEmails(ctx context.Context, business models.Business) (emails []string, primary string, err error)
}

// TemplateGenerator produces a personalized outreach email body for a
// business. Implementations fall back to canned templates when no LLM
// provider is configured or the provider call fails.
type TemplateGenerator interface {
	Generate(ctx context.Context, business models.Business) (string, error)
}

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the chat completion interface shared by providers.
type LLMService interface {
	// Chat generates a completion from the conversation history. The
	// messages slice should contain system prompts and user messages in
	// chronological order.
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck verifies the provider is reachable and configured
	HealthCheck(ctx context.Context) error

	// Close releases provider resources
	Close() error
}
