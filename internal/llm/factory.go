package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/interfaces"
)

// NewLLMService creates the configured LLM provider. Returns (nil, nil)
// when the provider is "none": template generation then relies entirely
// on canned fallbacks.
func NewLLMService(cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	provider := cfg.LLM.Provider
	if provider == "" {
		provider = common.LLMProviderNone
	}

	logger.Info().Str("provider", provider).Msg("Initializing LLM service")

	switch provider {
	case common.LLMProviderClaude:
		return NewClaudeService(&cfg.Claude, logger)

	case common.LLMProviderGemini:
		return NewGeminiService(&cfg.Gemini, logger)

	case common.LLMProviderNone:
		return nil, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider '%s': must be 'claude', 'gemini', or 'none'", provider)
	}
}
