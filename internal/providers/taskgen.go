package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/nextlevelbuilder/tinystep/internal/store"
)

// GeneratedTask is the model's answer to a task generation prompt.
type GeneratedTask struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// goalPersonas seed sample goal documents for new users.
var goalPersonas = []string{
	"a busy software engineer trying to stay fit and read more",
	"a new parent carving out time for personal projects",
	"a graduate student balancing research, teaching, and health",
	"a freelance designer building better work habits",
	"a retiree learning new skills and staying active",
}

// TaskGenerator produces small concrete tasks for a goal, steered by the
// user's past accepted and rejected tasks.
type TaskGenerator struct {
	provider *OpenAIProvider
}

func NewTaskGenerator(provider *OpenAIProvider) *TaskGenerator {
	return &TaskGenerator{provider: provider}
}

func (g *TaskGenerator) GenerateTask(ctx context.Context, goal, category, note string, now time.Time, liked, disliked []store.ScoredTask) (*GeneratedTask, error) {
	if note == "" {
		note = "N/A"
	}

	prompt := formatPrompt("taskGen", map[string]string{
		"goal":     goal,
		"category": category,
		"now":      now.Format(time.RFC3339),
		"note":     note,
		"liked":    exemplarsStr(liked),
		"disliked": exemplarsStr(disliked),
	})
	slog.Debug("task generation prompt", "goal", goal, "tokens", CountTokens(prompt))

	raw, err := g.provider.Chat(ctx, prompt, true)
	if err != nil {
		return nil, fmt.Errorf("generate task: %w", err)
	}

	var task GeneratedTask
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, fmt.Errorf("parse generated task: %w", err)
	}
	if task.Description == "" {
		return nil, fmt.Errorf("generated task has no description")
	}
	return &task, nil
}

// RandomPersona picks a persona to seed a generated goals document.
func RandomPersona() string {
	return goalPersonas[rand.Intn(len(goalPersonas))]
}

// GenerateGoalsDoc writes a starter goals document for the persona,
// shaped by tasks the user previously responded well to.
func (g *TaskGenerator) GenerateGoalsDoc(ctx context.Context, persona string, examples []store.ScoredTask) (string, error) {
	slog.Debug("generating goals doc", "persona", persona, "examples", len(examples))

	prompt := formatPrompt("goalsDoc", map[string]string{
		"persona":  persona,
		"examples": exemplarsStr(examples),
	})

	content, err := g.provider.Chat(ctx, prompt, false)
	if err != nil {
		return "", fmt.Errorf("generate goals doc: %w", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("generated goals doc is empty")
	}
	return content, nil
}

func exemplarsStr(examples []store.ScoredTask) string {
	if len(examples) == 0 {
		return "N/A"
	}
	var b strings.Builder
	for _, ex := range examples {
		goal := "N/A"
		if ex.Task.Goal != nil {
			goal = ex.Task.Goal.Path
		}
		fmt.Fprintf(&b, "<example><goal>%s</goal><task>%s</task></example>\n", goal, ex.Task.Description)
	}
	return strings.TrimSpace(b.String())
}
