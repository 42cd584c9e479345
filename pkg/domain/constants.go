package domain

// Persistence key suffixes. Stores see them namespaced as "<session>:<suffix>".
const (
	KeySession            = "session"
	KeyHistoryLog         = "history-log"
	KeyExportedNarrative  = "exported-narrative-text"
	KeyLastSelectedChoice = "last-selected-choice"
)

// Defaults shared by the engine, the parser and the built-in graph.
const (
	DefaultInitialNodeID    = "start"
	DefaultCrossroadsNodeID = "crossroads"
	DefaultMaxHistoryLength = 10
	DefaultMaxHistoryLog    = 50
	// MaxGeneratedChoices is the fixed size of a parsed choice set.
	MaxGeneratedChoices = 3
)

// DefaultContinuationNodes is the fallback mapping table for generated options
// without an authored counterpart, indexed by option ordinal minus one.
var DefaultContinuationNodes = []string{"strange_occurrence", "alternative_path", "mystery_deepens"}
