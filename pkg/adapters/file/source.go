package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/schema"
)

// Resource file names inside a story directory.
const (
	NodesFile        = "nodes.json"
	CharactersFile   = "characters.json"
	FrameworkFile    = "framework.json"
	IntroductionFile = "introduction.txt"
)

// GraphSource implements ports.GraphSource over a directory of JSON resources.
// Only nodes.json is mandatory; the other resources fall back to defaults.
type GraphSource struct {
	Dir string
}

// NewGraphSource creates a source reading from dir.
func NewGraphSource(dir string) *GraphSource {
	return &GraphSource{Dir: dir}
}

// wireNode accepts the legacy "requiresAI" spelling next to "requiresGeneration".
type wireNode struct {
	domain.Node
	RequiresAI *bool `json:"requiresAI,omitempty"`
}

// LoadGraph reads and validates the story directory.
func (s *GraphSource) LoadGraph(ctx context.Context) (*domain.Graph, error) {
	nodesPath := filepath.Join(s.Dir, NodesFile)
	data, err := os.ReadFile(nodesPath)
	if err != nil {
		return nil, &domain.ConfigError{Source: nodesPath, Err: err}
	}

	if err := schema.ValidateNodes(data); err != nil {
		return nil, &domain.ConfigError{Source: nodesPath, Err: err}
	}

	var wire map[string]wireNode
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &domain.ConfigError{Source: nodesPath, Err: err}
	}

	g := &domain.Graph{Nodes: make(map[string]domain.Node, len(wire))}
	for id, w := range wire {
		n := w.Node
		if w.RequiresAI != nil && *w.RequiresAI {
			n.RequiresGeneration = true
		}
		if n.ID == "" {
			n.ID = id
		}
		g.Nodes[id] = n
	}

	if err := readOptionalJSON(filepath.Join(s.Dir, CharactersFile), &g.Characters); err != nil {
		return nil, err
	}
	if err := readOptionalJSON(filepath.Join(s.Dir, FrameworkFile), &g.Framework); err != nil {
		return nil, err
	}

	intro, err := os.ReadFile(filepath.Join(s.Dir, IntroductionFile))
	switch {
	case err == nil:
		g.Introduction = strings.TrimSpace(string(intro))
	case !errors.Is(err, os.ErrNotExist):
		return nil, &domain.ConfigError{Source: IntroductionFile, Err: err}
	}

	return g, nil
}

// readOptionalJSON leaves v untouched when the file does not exist.
func readOptionalJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &domain.ConfigError{Source: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &domain.ConfigError{Source: path, Err: fmt.Errorf("malformed json: %w", err)}
	}
	return nil
}
