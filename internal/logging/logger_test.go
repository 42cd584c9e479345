package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/plotforge/internal/logging"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONRenamesError(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelInfo, "json")

	logger.Info("boom", "error", "disk full")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "disk full", rec["err"])
	assert.NotContains(t, rec, "error")
}

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelWarn, "text")

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	level, err := logging.ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = logging.ParseLevel("loud")
	assert.Error(t, err)
}

func TestHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := logging.Hooks(logging.NewWithWriter(&buf, slog.LevelDebug, "text"))
	ctx := context.Background()

	hooks.OnNodeResolved(ctx, &domain.NodeEvent{NodeID: "start"})
	hooks.OnGeneration(ctx, &domain.GenerationEvent{NodeID: "mystery_deepens", Outcome: domain.GenerationFallback, Err: errors.New("timeout")})
	hooks.OnRecovery(ctx, &domain.RecoveryEvent{MissingNodeID: "ghost", Tier: domain.RecoveryCrossroads})
	hooks.OnPersistenceError(ctx, &domain.PersistenceEvent{Key: "default:session", Err: errors.New("disk full")})

	out := buf.String()
	assert.Contains(t, out, "node_id=start")
	assert.Contains(t, out, "err=timeout")
	assert.Contains(t, out, "missing=ghost")
	assert.Contains(t, out, "key=default:session")
}
