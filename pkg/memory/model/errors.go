package model

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a lookup against an unknown record id.
var ErrNotFound = errors.New("memory: record not found")

// ValidationError reports a malformed record or query handed to the engine.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("memory: invalid %s: %s", e.Field, e.Reason)
}

// EmbeddingError reports a provider that failed to produce a usable vector.
type EmbeddingError struct {
	Cause error
	Got   int
	Want  int
}

func (e *EmbeddingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("memory: embedding failed: %v", e.Cause)
	}
	return fmt.Sprintf("memory: embedding dimension %d, want %d", e.Got, e.Want)
}

func (e *EmbeddingError) Unwrap() error { return e.Cause }

// StrategyError reports a single retrieval strategy failing. It is logged
// and treated as an empty contribution, never surfaced on its own.
type StrategyError struct {
	Strategy string
	Cause    error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("memory: %s strategy failed: %v", e.Strategy, e.Cause)
}

func (e *StrategyError) Unwrap() error { return e.Cause }
