// Package providers implements the LLM-backed generators: recurrence
// rule inference, task generation, sample goal documents, and text
// embeddings, all through an OpenAI-compatible API.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	openAIDefaultBase           = "https://api.openai.com/v1"
	openAIDefaultModel          = "gpt-4o-mini"
	openAIDefaultEmbeddingModel = "text-embedding-3-small"
)

// OpenAIProvider talks to any OpenAI-compatible chat + embeddings API.
type OpenAIProvider struct {
	name           string
	apiKey         string
	apiBase        string
	model          string
	embeddingModel string
	client         *http.Client
}

type OpenAIConfig struct {
	APIKey         string
	APIBase        string
	Model          string
	EmbeddingModel string
	TimeoutMs      int
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	p := &OpenAIProvider{
		name:           "openai",
		apiKey:         cfg.APIKey,
		apiBase:        cfg.APIBase,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
	}
	if p.apiBase == "" {
		p.apiBase = openAIDefaultBase
	}
	if p.model == "" {
		p.model = openAIDefaultModel
	}
	if p.embeddingModel == "" {
		p.embeddingModel = openAIDefaultEmbeddingModel
	}
	timeout := cfg.TimeoutMs
	if timeout <= 0 {
		timeout = 60000
	}
	p.client = &http.Client{Timeout: time.Duration(timeout) * time.Millisecond}
	return p
}

func (p *OpenAIProvider) Name() string  { return p.name }
func (p *OpenAIProvider) Model() string { return p.embeddingModel }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Chat sends a single-turn prompt. When jsonMode is set the request asks
// for a JSON object response, which OpenAI-compatible servers enforce.
func (p *OpenAIProvider) Chat(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	body := chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.5,
	}
	if jsonMode {
		body.ResponseFormat = map[string]any{"type": "json_object"}
	}

	var out chatResponse
	if err := p.post(ctx, "/chat/completions", body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns one embedding per input text, in input order.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var out embeddingResponse
	if err := p.post(ctx, "/embeddings", embeddingRequest{Model: p.embeddingModel, Input: texts}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(out.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (p *OpenAIProvider) post(ctx context.Context, path string, body, out any) error {
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+path, bytes.NewReader(bodyJSON))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s error %d: %s", path, resp.StatusCode, string(errBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
