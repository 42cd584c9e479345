// Package config loads Plotforge settings from an optional YAML file and
// PLOTFORGE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PLOTFORGE_"

// Config is the root configuration.
type Config struct {
	Story   StoryConfig   `yaml:"story" envPrefix:"STORY_"`
	Graph   GraphConfig   `yaml:"graph" envPrefix:"GRAPH_"`
	AI      AIConfig      `yaml:"ai" envPrefix:"AI_"`
	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
}

// StoryConfig controls the narrative engine.
type StoryConfig struct {
	InitialNode       string   `yaml:"initial_node" env:"INITIAL_NODE"`
	Session           string   `yaml:"session" env:"SESSION"`
	MaxHistoryLength  int      `yaml:"max_history_length" env:"MAX_HISTORY_LENGTH"`
	MaxHistoryLog     int      `yaml:"max_history_log" env:"MAX_HISTORY_LOG"`
	AutoSave          bool     `yaml:"auto_save" env:"AUTO_SAVE"`
	ContinuationNodes []string `yaml:"continuation_nodes" env:"CONTINUATION_NODES" envSeparator:","`
}

// GraphConfig selects the story graph. An empty Path means the built-in story.
type GraphConfig struct {
	Path string `yaml:"path" env:"PATH"`
	// Format is "auto", "json" (nodes.json directory) or "loam".
	Format string `yaml:"format" env:"FORMAT"`
}

// AIConfig selects and tunes the text generator.
type AIConfig struct {
	// Provider is one of "none", "qwen-plus", "openai", "spark" (OpenAI-compatible)
	// or "dashscope" (native API).
	Provider    string        `yaml:"provider" env:"PROVIDER"`
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	Model       string        `yaml:"model" env:"MODEL"`
	MaxTokens   int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Temperature float64       `yaml:"temperature" env:"TEMPERATURE"`
	TopP        float64       `yaml:"top_p" env:"TOP_P"`
	TopK        int           `yaml:"top_k" env:"TOP_K"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// StorageConfig selects the content store.
type StorageConfig struct {
	// Driver is one of "memory", "file", "redis", "sqlite" or "postgres".
	Driver        string        `yaml:"driver" env:"DRIVER"`
	Path          string        `yaml:"path" env:"PATH"`
	DSN           string        `yaml:"dsn" env:"DSN"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
	TTL           time.Duration `yaml:"ttl" env:"TTL"`
	// EncryptionKey turns on AES-GCM encryption of stored values.
	EncryptionKey string `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	// FallbackKeys are retired keys still accepted for reading.
	FallbackKeys []string `yaml:"fallback_keys" env:"FALLBACK_KEYS" envSeparator:","`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
	// LockTTL bounds distributed session locks when storage is redis.
	LockTTL time.Duration `yaml:"lock_ttl" env:"LOCK_TTL"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Story: StoryConfig{
			InitialNode:       domain.DefaultInitialNodeID,
			Session:           "default",
			MaxHistoryLength:  domain.DefaultMaxHistoryLength,
			MaxHistoryLog:     domain.DefaultMaxHistoryLog,
			AutoSave:          true,
			ContinuationNodes: append([]string(nil), domain.DefaultContinuationNodes...),
		},
		Graph: GraphConfig{
			Format: "auto",
		},
		AI: AIConfig{
			Provider:    "qwen-plus",
			BaseURL:     "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Model:       "qwen-plus",
			MaxTokens:   16384,
			Temperature: 1.2,
			TopP:        0.95,
			TopK:        6,
			Timeout:     20 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "file",
			Path:   ".plotforge/store",
		},
		Server: ServerConfig{
			Addr:    ":8080",
			LockTTL: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, &domain.ConfigError{Source: path, Err: err}
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, &domain.ConfigError{Source: path, Err: fmt.Errorf("parse yaml: %w", err)}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, &domain.ConfigError{Source: "env", Err: fmt.Errorf("parse env: %w", err)}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var (
	providers = []string{"none", "qwen-plus", "openai", "spark", "dashscope"}
	drivers   = []string{"memory", "file", "redis", "sqlite", "postgres"}
	formats   = []string{"auto", "json", "loam"}
	levels    = []string{"debug", "info", "warn", "error"}
)

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Story.InitialNode) == "" {
		errs = append(errs, errors.New("story.initial_node is required"))
	}
	if strings.TrimSpace(c.Story.Session) == "" {
		errs = append(errs, errors.New("story.session is required"))
	}
	if c.Story.MaxHistoryLength < 1 {
		errs = append(errs, fmt.Errorf("story.max_history_length must be positive, got %d", c.Story.MaxHistoryLength))
	}
	if c.Story.MaxHistoryLog < 1 {
		errs = append(errs, fmt.Errorf("story.max_history_log must be positive, got %d", c.Story.MaxHistoryLog))
	}
	if len(c.Story.ContinuationNodes) == 0 {
		errs = append(errs, errors.New("story.continuation_nodes must not be empty"))
	}

	if !slices.Contains(formats, c.Graph.Format) {
		errs = append(errs, fmt.Errorf("graph.format %q must be one of %s", c.Graph.Format, strings.Join(formats, ", ")))
	}

	if !slices.Contains(providers, c.AI.Provider) {
		errs = append(errs, fmt.Errorf("ai.provider %q must be one of %s", c.AI.Provider, strings.Join(providers, ", ")))
	}
	if c.AI.Provider != "none" {
		if c.AI.MaxTokens < 1 {
			errs = append(errs, fmt.Errorf("ai.max_tokens must be positive, got %d", c.AI.MaxTokens))
		}
		if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
			errs = append(errs, fmt.Errorf("ai.temperature must be within [0, 2], got %g", c.AI.Temperature))
		}
		if c.AI.TopP <= 0 || c.AI.TopP > 1 {
			errs = append(errs, fmt.Errorf("ai.top_p must be within (0, 1], got %g", c.AI.TopP))
		}
		if c.AI.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("ai.timeout must be positive, got %s", c.AI.Timeout))
		}
	}

	if !slices.Contains(drivers, c.Storage.Driver) {
		errs = append(errs, fmt.Errorf("storage.driver %q must be one of %s", c.Storage.Driver, strings.Join(drivers, ", ")))
	}
	switch c.Storage.Driver {
	case "file", "sqlite":
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for %s", c.Storage.Driver))
		}
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			errs = append(errs, errors.New("storage.redis_addr is required for redis"))
		}
	}

	if c.Storage.EncryptionKey == "" && len(c.Storage.FallbackKeys) > 0 {
		errs = append(errs, errors.New("storage.fallback_keys requires storage.encryption_key"))
	}

	if !slices.Contains(levels, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, fmt.Errorf("logging.level %q must be one of %s", c.Logging.Level, strings.Join(levels, ", ")))
	}

	if len(errs) > 0 {
		return &domain.ConfigError{Source: "config", Err: errors.Join(errs...)}
	}
	return nil
}
