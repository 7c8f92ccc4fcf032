package templates

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/interfaces"
	"github.com/amitsh06/leadgen/internal/models"
)

const systemPrompt = "You write short, personalized cold outreach emails for local businesses. " +
	"Keep it under 150 words, friendly and specific. No subject line, no placeholders, " +
	"sign off with the sender name given in the request."

// cannedTemplates are the offline fallbacks. Placeholders: {name},
// {category}, {city}, {sender}, {company}.
var cannedTemplates = []string{
	"Hi {name} team,\n\nI came across your {category} while looking at businesses in {city} and was impressed by your reviews. We help businesses like yours bring in more local customers without extra ad spend.\n\nWould you be open to a quick call this week?\n\nBest,\n{sender}\n{company}",
	"Hello,\n\nI found {name} online and wanted to reach out. We work with {category} owners in {city} and typically help them save hours each week on customer follow-up.\n\nIf that sounds useful, happy to share a couple of ideas - no strings attached.\n\nCheers,\n{sender}\n{company}",
	"Hi there,\n\n{name} caught my attention while I was researching {city}. We recently helped a similar {category} grow their repeat business noticeably in a few months.\n\nWould you be interested in hearing what worked for them?\n\nRegards,\n{sender}\n{company}",
}

// Generator produces outreach emails, preferring the configured LLM and
// falling back to canned templates when no provider is available or the
// call fails. Implements interfaces.TemplateGenerator.
type Generator struct {
	config *common.TemplatesConfig
	llm    interfaces.LLMService
	logger arbor.ILogger
	pick   func(n int) int
}

// NewGenerator creates the template generator. llm may be nil.
func NewGenerator(config *common.TemplatesConfig, llm interfaces.LLMService, logger arbor.ILogger) *Generator {
	return &Generator{
		config: config,
		llm:    llm,
		logger: logger,
		pick:   rand.Intn,
	}
}

// Generate returns a personalized outreach email body for the business
func (g *Generator) Generate(ctx context.Context, business models.Business) (string, error) {
	if g.llm != nil {
		template, err := g.generateWithLLM(ctx, business)
		if err == nil {
			return template, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		g.logger.Warn().Err(err).
			Str("business", business.Name).
			Msg("LLM template generation failed, using canned template")
	}
	return g.cannedTemplate(business), nil
}

func (g *Generator) generateWithLLM(ctx context.Context, business models.Business) (string, error) {
	prompt := g.buildPrompt(business)

	response, err := g.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return "", err
	}

	response = strings.TrimSpace(response)
	if response == "" {
		return "", fmt.Errorf("empty template from provider")
	}
	return response, nil
}

// buildPrompt describes the business to the model, omitting empty fields
func (g *Generator) buildPrompt(business models.Business) string {
	var sb strings.Builder
	sb.WriteString("Write a cold outreach email to this business:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", business.Name)
	if business.Category != "" {
		fmt.Fprintf(&sb, "- Type: %s\n", business.Category)
	}
	if business.Address != "" {
		fmt.Fprintf(&sb, "- Address: %s\n", business.Address)
	}
	if business.Rating > 0 {
		fmt.Fprintf(&sb, "- Rating: %.1f (%d reviews)\n", business.Rating, business.ReviewCount)
	}
	if business.Website != "" {
		fmt.Fprintf(&sb, "- Website: %s\n", business.Website)
	}
	fmt.Fprintf(&sb, "Sender: %s from %s\n", g.config.SenderName, g.config.SenderCompany)
	return sb.String()
}

// cannedTemplate fills one of the offline templates with business fields
func (g *Generator) cannedTemplate(business models.Business) string {
	template := cannedTemplates[g.pick(len(cannedTemplates))]

	category := business.Category
	if category == "" {
		category = "business"
	}
	city := cityFromAddress(business.Address)
	if city == "" {
		city = "your area"
	}

	replacer := strings.NewReplacer(
		"{name}", business.Name,
		"{category}", strings.ToLower(category),
		"{city}", city,
		"{sender}", g.config.SenderName,
		"{company}", g.config.SenderCompany,
	)
	return replacer.Replace(template)
}

// cityFromAddress pulls the city from a comma-separated address, e.g.
// "300 S Broadway, Los Angeles, CA 90013" -> "Los Angeles".
func cityFromAddress(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-2])
}
