package dsl

import (
	"sort"

	"github.com/aretw0/plotforge/pkg/adapters/memory"
	"github.com/aretw0/plotforge/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	nodes      map[string]*NodeBuilder
	order      []string
	framework  domain.Framework
	characters domain.Characters
	intro      string
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:      id,
			Choices: []domain.Choice{},
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Framework sets the world background fed to generative prompts.
func (b *Builder) Framework(f domain.Framework) *Builder {
	b.framework = f
	return b
}

// Character adds or replaces a character profile.
func (b *Builder) Character(key string, profile map[string]any) *Builder {
	if b.characters == nil {
		b.characters = make(domain.Characters)
	}
	b.characters[key] = profile
	return b
}

// Introduction sets the text shown before the story starts.
func (b *Builder) Introduction(text string) *Builder {
	b.intro = text
	return b
}

// IDs returns the node IDs in insertion order.
func (b *Builder) IDs() []string {
	return append([]string(nil), b.order...)
}

// Graph compiles the builder into a domain graph.
func (b *Builder) Graph() *domain.Graph {
	g := &domain.Graph{
		Nodes:        make(map[string]domain.Node, len(b.nodes)),
		Framework:    b.framework,
		Characters:   b.characters,
		Introduction: b.intro,
	}
	for id, nb := range b.nodes {
		g.Nodes[id] = nb.node.Clone()
	}
	return g
}

// Build compiles the graph into an in-memory GraphSource.
func (b *Builder) Build() *memory.GraphSource {
	ids := make([]string, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodes := make([]domain.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, b.nodes[id].node)
	}
	src := memory.NewGraphSource(nodes...).WithFramework(b.framework).WithCharacters(b.characters)
	return src.WithIntroduction(b.intro)
}
