package domain

// Node represents a unit of narrative content in the story graph.
type Node struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Content is the authored prose. Mandatory for static nodes, optional
	// for generative ones.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	// RequiresGeneration marks nodes whose content is produced on demand.
	RequiresGeneration bool `json:"requiresGeneration,omitempty" yaml:"requires_generation,omitempty"`

	// Choices are the authored graph edges. An empty list marks a terminal node.
	Choices []Choice `json:"choices" yaml:"choices"`

	// FallbackContent is shown whenever generation or parsing fails.
	FallbackContent string `json:"fallbackContent" yaml:"fallback_content"`

	// Metadata allows for extensible key-value pairs (tags, authoring notes).
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Choice is an authored option linking the current node to a next node.
type Choice struct {
	ID       string `json:"id" yaml:"id"`
	Text     string `json:"text" yaml:"text"`
	NextNode string `json:"nextNode" yaml:"next_node"`

	// Effects are deltas added to narrative variables when the choice is taken.
	Effects map[string]float64 `json:"effects,omitempty" yaml:"effects,omitempty"`

	// Condition is an optional boolean expression over story variables,
	// e.g. "courage >= 2". Empty means always visible.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// IsTerminal reports whether the node has no outgoing choices.
func (n Node) IsTerminal() bool {
	return len(n.Choices) == 0
}

// Clone returns a deep copy of the node so callers can never mutate shared definitions.
func (n Node) Clone() Node {
	out := n
	if n.Choices != nil {
		out.Choices = CloneChoices(n.Choices)
	}
	if n.Metadata != nil {
		out.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// CloneChoices deep-copies a list of choices, including their effect maps.
func CloneChoices(choices []Choice) []Choice {
	if choices == nil {
		return nil
	}
	out := make([]Choice, len(choices))
	for i, c := range choices {
		out[i] = c
		if c.Effects != nil {
			out[i].Effects = make(map[string]float64, len(c.Effects))
			for k, v := range c.Effects {
				out[i].Effects[k] = v
			}
		}
	}
	return out
}

// Framework is the world background fed to generative prompts.
type Framework struct {
	Background string `json:"background" yaml:"background" mapstructure:"background"`
	Theme      string `json:"theme,omitempty" yaml:"theme,omitempty" mapstructure:"theme"`
	Tone       string `json:"tone,omitempty" yaml:"tone,omitempty" mapstructure:"tone"`
}

// Characters maps a roster key (e.g. "protagonist") to a free-form character sheet.
type Characters map[string]map[string]any

// Graph is the authored story as supplied by a GraphSource.
type Graph struct {
	Nodes        map[string]Node
	Framework    Framework
	Characters   Characters
	Introduction string
}
