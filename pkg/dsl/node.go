package dsl

import "github.com/aretw0/plotforge/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Text sets the authored content of a static node.
func (n *NodeBuilder) Text(content string) *NodeBuilder {
	n.node.Content = content
	n.node.RequiresGeneration = false
	return n
}

// Generate marks the node as generative. The description steers the prompt.
func (n *NodeBuilder) Generate(description string) *NodeBuilder {
	n.node.RequiresGeneration = true
	n.node.Description = description
	return n
}

// Describe sets the node description without changing its kind.
func (n *NodeBuilder) Describe(description string) *NodeBuilder {
	n.node.Description = description
	return n
}

// Fallback sets the content shown when generation fails.
func (n *NodeBuilder) Fallback(content string) *NodeBuilder {
	n.node.FallbackContent = content
	return n
}

// Choice adds an authored choice leading to target.
func (n *NodeBuilder) Choice(id, text, target string) *NodeBuilder {
	n.node.Choices = append(n.node.Choices, domain.Choice{ID: id, Text: text, NextNode: target})
	return n
}

// Effect adds a variable delta to the most recently added choice.
func (n *NodeBuilder) Effect(variable string, delta float64) *NodeBuilder {
	c := n.lastChoice()
	if c == nil {
		return n
	}
	if c.Effects == nil {
		c.Effects = make(map[string]float64)
	}
	c.Effects[variable] += delta
	return n
}

// When guards the most recently added choice with a condition over story
// variables, e.g. "courage >= 2".
func (n *NodeBuilder) When(condition string) *NodeBuilder {
	if c := n.lastChoice(); c != nil {
		c.Condition = condition
	}
	return n
}

// Meta adds an authoring metadata entry.
func (n *NodeBuilder) Meta(key, value string) *NodeBuilder {
	if n.node.Metadata == nil {
		n.node.Metadata = make(map[string]string)
	}
	n.node.Metadata[key] = value
	return n
}

// Terminal marks the node as a terminal node (end of the story).
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.node.Choices = []domain.Choice{}
	return n
}

// Add continues with another node of the same graph.
func (n *NodeBuilder) Add(id string) *NodeBuilder {
	return n.builder.Add(id)
}

// Build returns a copy of the underlying domain.Node.
func (n *NodeBuilder) Build() domain.Node {
	return n.node.Clone()
}

func (n *NodeBuilder) lastChoice() *domain.Choice {
	if len(n.node.Choices) == 0 {
		return nil
	}
	return &n.node.Choices[len(n.node.Choices)-1]
}
