package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/ports"
)

// NodeSet is an immutable, validated view over a story graph.
type NodeSet struct {
	nodes        map[string]domain.Node
	framework    domain.Framework
	characters   domain.Characters
	introduction string
}

// New builds a NodeSet from a graph. Node IDs default to their map key and
// choice IDs default to "<node>_<index>".
func New(g *domain.Graph) (*NodeSet, error) {
	if g == nil || len(g.Nodes) == 0 {
		return nil, &domain.ConfigError{Source: "graph", Err: errors.New("graph has no nodes")}
	}

	set := &NodeSet{
		nodes:        make(map[string]domain.Node, len(g.Nodes)),
		framework:    g.Framework,
		characters:   cloneCharacters(g.Characters),
		introduction: g.Introduction,
	}

	for key, node := range g.Nodes {
		n := node.Clone()
		if n.ID == "" {
			n.ID = key
		}
		if n.ID != key {
			return nil, &domain.ConfigError{
				Source: "graph",
				Err:    fmt.Errorf("node keyed %q declares id %q", key, n.ID),
			}
		}
		if n.Choices == nil {
			n.Choices = []domain.Choice{}
		}
		for i := range n.Choices {
			if n.Choices[i].ID == "" {
				n.Choices[i].ID = fmt.Sprintf("%s_%d", n.ID, i+1)
			}
		}
		set.nodes[key] = n
	}
	return set, nil
}

// Load reads the graph from source. Any failure is reported as a
// *domain.ConfigError.
func Load(ctx context.Context, source ports.GraphSource) (*NodeSet, error) {
	if source == nil {
		return nil, &domain.ConfigError{Source: "graph", Err: errors.New("no graph source configured")}
	}

	g, err := source.LoadGraph(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrConfig) {
			return nil, err
		}
		return nil, &domain.ConfigError{Source: fmt.Sprintf("%T", source), Err: err}
	}
	return New(g)
}

// LoadOrDefault is Load with a fallback to the built-in graph.
func LoadOrDefault(ctx context.Context, source ports.GraphSource, logger *slog.Logger) *NodeSet {
	set, err := Load(ctx, source)
	if err == nil {
		return set
	}
	if logger != nil {
		logger.Warn("story graph unavailable, using built-in graph", "err", err)
	}
	return Default()
}

// Lookup returns a deep copy of the node with the given ID.
func (s *NodeSet) Lookup(id string) (domain.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return domain.Node{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	return n.Clone(), nil
}

// Has reports whether a node exists.
func (s *NodeSet) Has(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// Count returns the number of authored nodes.
func (s *NodeSet) Count() int {
	return len(s.nodes)
}

// IDs returns all node IDs, sorted.
func (s *NodeSet) IDs() []string {
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Nodes returns copies of all nodes ordered by ID.
func (s *NodeSet) Nodes() []domain.Node {
	out := make([]domain.Node, 0, len(s.nodes))
	for _, id := range s.IDs() {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

func (s *NodeSet) Framework() domain.Framework {
	return s.framework
}

// Characters returns a copy of the character roster.
func (s *NodeSet) Characters() domain.Characters {
	return cloneCharacters(s.characters)
}

// Introduction returns the story introduction text, or the default greeting.
func (s *NodeSet) Introduction() string {
	if s.introduction == "" {
		return DefaultIntroduction
	}
	return s.introduction
}

func cloneCharacters(in domain.Characters) domain.Characters {
	out := make(domain.Characters, len(in))
	for name, sheet := range in {
		c := make(map[string]any, len(sheet))
		for k, v := range sheet {
			c[k] = v
		}
		out[name] = c
	}
	return out
}
