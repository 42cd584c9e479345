package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when a requested node ID is absent from the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrConfig classifies unreadable or malformed graph/template sources.
	ErrConfig = errors.New("invalid story configuration")

	// ErrGeneration classifies Generator transport, auth and empty-output failures.
	ErrGeneration = errors.New("generation failed")

	// ErrPersistence classifies Content Store read/write failures.
	ErrPersistence = errors.New("persistence failed")

	// ErrNoRecoverableState is returned when neither the session record nor the
	// history log holds a usable cursor.
	ErrNoRecoverableState = errors.New("no recoverable state")

	// ErrSessionNotFound is returned when no session record exists in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrKeyNotFound is returned by content stores for missing keys.
	ErrKeyNotFound = errors.New("key not found")
)

// ConfigError describes a graph or template source that could not be used.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config source %q: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is makes every ConfigError match ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// GenerationError describes a failed call to a Generator.
type GenerationError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is makes every GenerationError match ErrGeneration.
func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// NewGenerationError is a small constructor used by generator adapters.
func NewGenerationError(provider, reason string, err error) *GenerationError {
	return &GenerationError{Provider: provider, Reason: reason, Err: err}
}

// ErrInvalidChoice is returned when a choice reference does not match the
// current scene.
var ErrInvalidChoice = errors.New("invalid choice")
