package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/plotforge/pkg/domain"
)

// GraphSource implements ports.GraphSource over in-process nodes.
type GraphSource struct {
	graph domain.Graph
}

// NewGraphSource creates a source from domain nodes.
func NewGraphSource(nodes ...domain.Node) *GraphSource {
	g := domain.Graph{Nodes: make(map[string]domain.Node, len(nodes))}
	for _, n := range nodes {
		g.Nodes[n.ID] = n.Clone()
	}
	return &GraphSource{graph: g}
}

// WithFramework sets the world background served with the graph.
func (s *GraphSource) WithFramework(f domain.Framework) *GraphSource {
	s.graph.Framework = f
	return s
}

// WithCharacters sets the character roster served with the graph.
func (s *GraphSource) WithCharacters(c domain.Characters) *GraphSource {
	s.graph.Characters = c
	return s
}

// WithIntroduction sets the text shown before the story starts.
func (s *GraphSource) WithIntroduction(text string) *GraphSource {
	s.graph.Introduction = text
	return s
}

// LoadGraph returns a copy of the configured graph.
func (s *GraphSource) LoadGraph(ctx context.Context) (*domain.Graph, error) {
	if len(s.graph.Nodes) == 0 {
		return nil, &domain.ConfigError{Source: "memory", Err: errors.New("no nodes")}
	}
	out := s.graph
	out.Nodes = make(map[string]domain.Node, len(s.graph.Nodes))
	for id, n := range s.graph.Nodes {
		if id == "" {
			return nil, &domain.ConfigError{Source: "memory", Err: fmt.Errorf("node missing ID")}
		}
		out.Nodes[id] = n.Clone()
	}
	return &out, nil
}
