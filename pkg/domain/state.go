package domain

import "time"

// HistoryEntry records one resolved node.
type HistoryEntry struct {
	NodeID    string    `json:"nodeId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// StoryState is the mutable narrative state owned by a single session.
type StoryState struct {
	// History is bounded; oldest entries are evicted first.
	History []HistoryEntry `json:"history"`

	// Variables accumulate choice effects.
	Variables map[string]float64 `json:"variables"`

	CharacterInfo Characters `json:"characterInfo"`
	FrameworkInfo Framework  `json:"frameworkInfo"`

	// LastChoiceText is the text of the most recently taken choice.
	LastChoiceText string `json:"lastChoice,omitempty"`

	// Synthetic holds session-scoped nodes materialized by error recovery.
	// They are resolvable by ID exactly like authored nodes.
	Synthetic map[string]Node `json:"synthetic,omitempty"`
}

// NewStoryState returns an empty state with all sub-maps allocated.
func NewStoryState() StoryState {
	return StoryState{
		History:       []HistoryEntry{},
		Variables:     make(map[string]float64),
		CharacterInfo: make(Characters),
		Synthetic:     make(map[string]Node),
	}
}

// Repair substitutes empty defaults for any missing sub-field.
func (s *StoryState) Repair() {
	if s.History == nil {
		s.History = []HistoryEntry{}
	}
	if s.Variables == nil {
		s.Variables = make(map[string]float64)
	}
	if s.CharacterInfo == nil {
		s.CharacterInfo = make(Characters)
	}
	if s.Synthetic == nil {
		s.Synthetic = make(map[string]Node)
	}
}

// Clone returns a deep copy of the state.
func (s StoryState) Clone() StoryState {
	out := s
	out.History = append([]HistoryEntry(nil), s.History...)
	if out.History == nil {
		out.History = []HistoryEntry{}
	}
	out.Variables = make(map[string]float64, len(s.Variables))
	for k, v := range s.Variables {
		out.Variables[k] = v
	}
	out.CharacterInfo = make(Characters, len(s.CharacterInfo))
	for name, sheet := range s.CharacterInfo {
		copied := make(map[string]any, len(sheet))
		for k, v := range sheet {
			copied[k] = v
		}
		out.CharacterInfo[name] = copied
	}
	out.Synthetic = make(map[string]Node, len(s.Synthetic))
	for id, n := range s.Synthetic {
		out.Synthetic[id] = n.Clone()
	}
	return out
}

// Session is the single cursor into the node graph plus the state it owns.
// An empty CurrentNodeID means the session is not started (or was reset).
type Session struct {
	ID            string
	CurrentNodeID string
	State         StoryState
}

// NewSession creates an uninitialized session.
func NewSession(id string) *Session {
	return &Session{
		ID:    id,
		State: NewStoryState(),
	}
}

// Started reports whether the cursor points at a node.
func (s Session) Started() bool {
	return s.CurrentNodeID != ""
}

// Scene is what the engine returns for rendering after resolving a node.
type Scene struct {
	NodeID  string   `json:"nodeId"`
	Content string   `json:"content"`
	Choices []Choice `json:"choices"`

	// Terminal is true when the scene has no outgoing choices.
	Terminal bool `json:"terminal"`

	// Generated is true when the content came from the Generator.
	Generated bool `json:"generated,omitempty"`

	// Recovered is true when the scene was produced by error recovery.
	Recovered bool `json:"recovered,omitempty"`
}

// FindChoice returns the scene choice with the given ID.
func (s *Scene) FindChoice(id string) (Choice, bool) {
	for _, c := range s.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// Snapshot is one entry of the persisted history log. CurrentNode is nil for
// entries recorded while no story was active.
type Snapshot struct {
	Timestamp   time.Time          `json:"timestamp"`
	CurrentNode *string            `json:"currentNode"`
	Content     string             `json:"content"`
	Choices     []Choice           `json:"choices"`
	Variables   map[string]float64 `json:"variables"`
}

// SelectedChoice is the persisted record of the most recently taken choice.
type SelectedChoice struct {
	Text      string    `json:"text"`
	NextNode  string    `json:"nextNode"`
	Timestamp time.Time `json:"timestamp"`
}
