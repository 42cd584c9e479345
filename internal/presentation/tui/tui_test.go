package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer_NonTerminalPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTerminal(&buf))
	assert.Equal(t, defaultWidth, Width(&buf))

	out, err := NewRenderer(&buf)("**bold** text")
	require.NoError(t, err)
	assert.Equal(t, "**bold** text", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "1.2.3")
	assert.Contains(t, buf.String(), "|___/")
}

func TestHighlight_PlainWriter(t *testing.T) {
	var buf bytes.Buffer
	assert.Contains(t, Highlight(&buf, "Climb"), "Climb")
}
