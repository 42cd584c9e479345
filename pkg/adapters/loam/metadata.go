package loam

// NodeMetadata represents the front matter of a story node document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type NodeMetadata struct {
	ID          string `json:"id" mapstructure:"id"`
	Description string `json:"description" mapstructure:"description"`

	// Generation flags; "requires_ai" is accepted as an alias.
	RequiresGeneration bool `json:"requires_generation" mapstructure:"requires_generation"`
	RequiresAI         bool `json:"requires_ai" mapstructure:"requires_ai"`

	Fallback string           `json:"fallback" mapstructure:"fallback"`
	Choices  []ChoiceMetadata `json:"choices" mapstructure:"choices"`

	// General Metadata, flattened to strings.
	Metadata map[string]any `json:"metadata" mapstructure:"metadata"`

	// Only read from the world document.
	Framework  map[string]any `json:"framework" mapstructure:"framework"`
	Characters map[string]any `json:"characters" mapstructure:"characters"`
}

// ChoiceMetadata is one authored option in front matter.
type ChoiceMetadata struct {
	ID       string `json:"id" mapstructure:"id"`
	Text     string `json:"text" mapstructure:"text"`
	To       string `json:"to" mapstructure:"to"`
	NextNode string `json:"next_node" mapstructure:"next_node"`

	Condition string `json:"condition" mapstructure:"condition"`

	// Effects values may arrive as json.Number in strict mode.
	Effects map[string]any `json:"effects" mapstructure:"effects"`
}
