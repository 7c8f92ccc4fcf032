package llm

import (
	"testing"

	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/interfaces"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

func TestConvertMessagesToClaude(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "You write short emails."},
		{Role: "user", Content: "Write one for a bakery."},
		{Role: "assistant", Content: "Sure."},
		{Role: "user", Content: "Shorter."},
	}

	claudeMessages, system, err := convertMessagesToClaude(messages)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if system != "You write short emails." {
		t.Errorf("system = %q", system)
	}
	if len(claudeMessages) != 3 {
		t.Errorf("messages = %d, want 3 (system extracted)", len(claudeMessages))
	}
}

func TestConvertMessagesToClaude_Empty(t *testing.T) {
	if _, _, err := convertMessagesToClaude(nil); err == nil {
		t.Error("expected error for empty messages")
	}
	if _, _, err := convertMessagesToClaude([]interfaces.Message{{Role: "system", Content: "only system"}}); err == nil {
		t.Error("expected error when only system messages present")
	}
}

func TestConvertMessagesToGemini(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "You write short emails."},
		{Role: "user", Content: "Write one."},
		{Role: "assistant", Content: "Done."},
	}

	contents, system, err := convertMessagesToGemini(messages)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if system != "You write short emails." {
		t.Errorf("system = %q", system)
	}
	if len(contents) != 2 {
		t.Fatalf("contents = %d, want 2", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Errorf("first role = %s, want user", contents[0].Role)
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("assistant role = %s, want model", contents[1].Role)
	}
}

func TestNewLLMService_ProviderSelection(t *testing.T) {
	logger := arbor.NewLogger()

	cfg := common.NewDefaultConfig()
	cfg.LLM.Provider = common.LLMProviderNone
	service, err := NewLLMService(cfg, logger)
	if err != nil || service != nil {
		t.Errorf("provider none: service = %v, err = %v, want nil/nil", service, err)
	}

	cfg.LLM.Provider = "openai"
	if _, err := NewLLMService(cfg, logger); err == nil {
		t.Error("expected error for unsupported provider")
	}

	// Claude without an API key fails fast
	cfg.LLM.Provider = common.LLMProviderClaude
	cfg.Claude.APIKey = ""
	if _, err := NewLLMService(cfg, logger); err == nil {
		t.Error("expected error for missing Claude API key")
	}
}
