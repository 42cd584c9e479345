// Package testutils holds fixtures shared by adapter and CLI tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo creates a temporary directory and initializes a Loam repository in it.
// It returns the absolute path to the temp dir and the initialized repository.
// It fails the test immediately on error.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}

// WriteFiles writes name -> content pairs under dir, creating parent directories.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// LighthouseStory is a small three-node story in Loam front matter format,
// with a world document.
var LighthouseStory = map[string]string{
	"start.md": `---
fallback: The lighthouse is dark.
choices:
  - id: climb
    text: Climb the stairs
    to: lamp_room
    effects:
      courage: 1
  - id: leave
    text: Walk back to the village
    to: village.md
---
The lighthouse keeper is gone.`,
	"lamp_room.md": `---
description: The lamp room at the top of the tower
requires_ai: true
fallback: Glass and rust.
choices:
  - text: Light the lamp
    to: village
---
`,
	"village.json": `{
  "id": "village",
  "fallback": "The village sleeps.",
  "choices": []
}`,
	"world.md": `---
id: _world
framework:
  background: A storm coast
  theme: loss
  tone: quiet
characters:
  keeper:
    name: Oona
---
Welcome to the coast.`,
}
