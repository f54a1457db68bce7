package providers

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsFS embed.FS

var prompts = mustLoadPrompts()

func mustLoadPrompts() map[string]string {
	raw, err := promptsFS.ReadFile("prompts.yaml")
	if err != nil {
		panic(fmt.Sprintf("read prompts.yaml: %v", err))
	}
	var m map[string]string
	if err := yaml.Unmarshal(raw, &m); err != nil {
		panic(fmt.Sprintf("parse prompts.yaml: %v", err))
	}
	return m
}

// formatPrompt substitutes {name} placeholders in the named template.
func formatPrompt(name string, vars map[string]string) string {
	tmpl := prompts[name]
	for k, v := range vars {
		tmpl = strings.ReplaceAll(tmpl, "{"+k+"}", v)
	}
	return strings.TrimSpace(tmpl)
}
