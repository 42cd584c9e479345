package gateway_test

import (
	"testing"

	"github.com/aretw0/plotforge/internal/config"
	"github.com/aretw0/plotforge/internal/gateway"
	"github.com/aretw0/plotforge/internal/logging"
	"github.com/aretw0/plotforge/pkg/adapters/dashscope"
	"github.com/aretw0/plotforge/pkg/adapters/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logger := logging.NewNop()
	base := config.Default().AI

	t.Run("none", func(t *testing.T) {
		cfg := base
		cfg.Provider = "none"
		gen, err := gateway.New(cfg, logger)
		require.NoError(t, err)
		assert.Nil(t, gen)
	})

	for _, p := range []string{"qwen-plus", "openai", "spark"} {
		t.Run(p, func(t *testing.T) {
			cfg := base
			cfg.Provider = p
			gen, err := gateway.New(cfg, logger)
			require.NoError(t, err)
			assert.IsType(t, &openai.Generator{}, gen)
		})
	}

	t.Run("dashscope", func(t *testing.T) {
		cfg := base
		cfg.Provider = "dashscope"
		gen, err := gateway.New(cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &dashscope.Generator{}, gen)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := base
		cfg.Provider = "oracle"
		_, err := gateway.New(cfg, logger)
		assert.Error(t, err)
	})
}
