// Package gateway selects the text generator for the configured provider, so
// the engine never branches on provider.
package gateway

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/plotforge/internal/config"
	"github.com/aretw0/plotforge/pkg/adapters/dashscope"
	"github.com/aretw0/plotforge/pkg/adapters/openai"
	"github.com/aretw0/plotforge/pkg/ports"
)

// New returns the generator for cfg.Provider. Provider "none" yields a nil
// generator: every generative node then shows its fallback content.
// A missing API key is not an error here; calls fail and fall back instead.
func New(cfg config.AIConfig, logger *slog.Logger) (ports.Generator, error) {
	switch cfg.Provider {
	case "none", "":
		return nil, nil
	case "qwen-plus", "openai", "spark":
		warnMissingKey(cfg, logger)
		return openai.New(openai.Config{
			Provider:    cfg.Provider,
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
			TopP:        float32(cfg.TopP),
			Timeout:     cfg.Timeout,
		}), nil
	case "dashscope":
		warnMissingKey(cfg, logger)
		baseURL := cfg.BaseURL
		if baseURL == config.Default().AI.BaseURL {
			baseURL = "" // compatible-mode default does not serve the native shape
		}
		return dashscope.New(dashscope.Config{
			BaseURL:     baseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			TopK:        cfg.TopK,
			Timeout:     cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

func warnMissingKey(cfg config.AIConfig, logger *slog.Logger) {
	if cfg.APIKey == "" && logger != nil {
		logger.Warn("AI API key not set; generative nodes will use fallback content",
			"provider", cfg.Provider, "env", config.EnvPrefix+"AI_API_KEY")
	}
}
