// Package openai implements ports.Generator against any OpenAI-compatible
// chat completions endpoint (OpenAI, DashScope compatible mode, Spark).
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/plotforge/pkg/domain"
	backend "github.com/sashabaranov/go-openai"
)

// SystemPrompt is sent ahead of every story prompt.
const SystemPrompt = "You are a professional novelist."

// Config holds the connection and sampling settings.
type Config struct {
	Provider    string // label used in errors and logs
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	TopP        float32
	Timeout     time.Duration
}

// Generator implements ports.Generator with go-openai.
type Generator struct {
	client *backend.Client
	cfg    Config
}

// New creates a generator. A BaseURL that already ends in /chat/completions
// is accepted and trimmed, since the client appends that path itself.
func New(cfg Config) *Generator {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}

	clientCfg := backend.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/chat/completions")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Generator{
		client: backend.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

// Generate sends one chat completion and returns the reply text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.cfg.APIKey == "" {
		return "", domain.NewGenerationError(g.cfg.Provider, "api key not set", nil)
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, backend.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []backend.ChatCompletionMessage{
			{Role: backend.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: backend.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		TopP:        g.cfg.TopP,
	})
	if err != nil {
		return "", domain.NewGenerationError(g.cfg.Provider, reason(ctx, err), err)
	}

	if len(resp.Choices) == 0 {
		return "", domain.NewGenerationError(g.cfg.Provider, "response has no choices", nil)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", domain.NewGenerationError(g.cfg.Provider, "empty content", nil)
	}
	return content, nil
}

func reason(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return "timeout"
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("api error %d", apiErr.HTTPStatusCode)
	}
	var reqErr *backend.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("http status %d", reqErr.HTTPStatusCode)
	}
	return "request failed"
}
