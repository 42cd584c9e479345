// Package dashscope implements ports.Generator against the native DashScope
// text-generation API (input/parameters request shape).
package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/plotforge/pkg/domain"
)

// DefaultBaseURL is the native generation endpoint.
const DefaultBaseURL = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

const provider = "dashscope"

const systemPrompt = "You are a professional novelist."

// Config holds the connection and sampling settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	TopK        int
	Timeout     time.Duration
}

// Generator implements ports.Generator over net/http.
type Generator struct {
	cfg    Config
	client *http.Client
}

// New creates a generator. A zero Timeout means no client-side limit
// beyond the caller's context.
func New(cfg Config) *Generator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Generator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model string `json:"model"`
	Input struct {
		Messages []message `json:"messages"`
	} `json:"input"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	TopP         float64 `json:"top_p,omitempty"`
	TopK         int     `json:"top_k,omitempty"`
	ResultFormat string  `json:"result_format"`
}

type response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Output    struct {
		Text    string `json:"text"`
		Choices []struct {
			Message message `json:"message"`
		} `json:"choices"`
	} `json:"output"`
}

// Generate posts one generation request and returns the reply text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.cfg.APIKey == "" {
		return "", domain.NewGenerationError(provider, "api key not set", nil)
	}

	var body request
	body.Model = g.cfg.Model
	body.Input.Messages = []message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}
	body.Parameters = parameters{
		MaxTokens:    g.cfg.MaxTokens,
		Temperature:  g.cfg.Temperature,
		TopP:         g.cfg.TopP,
		TopK:         g.cfg.TopK,
		ResultFormat: "message",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", domain.NewGenerationError(provider, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", domain.NewGenerationError(provider, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", domain.NewGenerationError(provider, "timeout", ctx.Err())
		}
		return "", domain.NewGenerationError(provider, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", domain.NewGenerationError(provider, "read response", err)
	}

	var out response
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := fmt.Sprintf("http status %d", resp.StatusCode)
		if decodeErr == nil && out.Message != "" {
			reason += ": " + out.Message
		}
		return "", domain.NewGenerationError(provider, reason, nil)
	}
	if decodeErr != nil {
		return "", domain.NewGenerationError(provider, "decode response", decodeErr)
	}
	if out.Code != "" {
		return "", domain.NewGenerationError(provider, fmt.Sprintf("api error %s: %s", out.Code, out.Message), nil)
	}

	content := out.Output.Text
	if len(out.Output.Choices) > 0 {
		content = out.Output.Choices[0].Message.Content
	}
	if strings.TrimSpace(content) == "" {
		return "", domain.NewGenerationError(provider, "empty content", nil)
	}
	return content, nil
}
