package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/tinystep/internal/recurrence"
)

// RuleGenerator infers recurrence candidates for category texts in one
// batched LLM call.
type RuleGenerator struct {
	provider *OpenAIProvider
}

func NewRuleGenerator(provider *OpenAIProvider) *RuleGenerator {
	return &RuleGenerator{provider: provider}
}

func (g *RuleGenerator) GenerateRules(ctx context.Context, texts []string, now time.Time) ([]recurrence.Candidate, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var items strings.Builder
	for _, t := range texts {
		fmt.Fprintf(&items, "<item>%s</item>\n", t)
	}

	prompt := formatPrompt("ruleGen", map[string]string{
		"now":   now.Format(time.RFC3339),
		"items": items.String(),
	})
	slog.Debug("rule generation prompt", "items", len(texts), "tokens", CountTokens(prompt))

	raw, err := g.provider.Chat(ctx, prompt, true)
	if err != nil {
		return nil, fmt.Errorf("generate rules: %w", err)
	}

	var parsed struct {
		Candidates []recurrence.Candidate `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse rule candidates: %w", err)
	}
	return parsed.Candidates, nil
}
