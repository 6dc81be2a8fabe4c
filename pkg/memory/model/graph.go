package model

import (
	"errors"
	"fmt"
	"time"
)

// RelationKind enumerates supported knowledge graph relationships between records.
type RelationKind string

const (
	RelationSimilar           RelationKind = "similar"
	RelationRelated           RelationKind = "related"
	RelationPrerequisite      RelationKind = "prerequisite"
	RelationFollows           RelationKind = "follows"
	RelationContradicts       RelationKind = "contradicts"
	RelationElaborates        RelationKind = "elaborates"
	RelationExampleOf         RelationKind = "example_of"
	RelationTemporalProximity RelationKind = "temporal_proximity"
)

var relationKinds = map[RelationKind]struct {
	bidirectional bool
}{
	RelationSimilar:           {bidirectional: true},
	RelationRelated:           {bidirectional: true},
	RelationPrerequisite:      {bidirectional: false},
	RelationFollows:           {bidirectional: false},
	RelationContradicts:       {bidirectional: true},
	RelationElaborates:        {bidirectional: false},
	RelationExampleOf:         {bidirectional: false},
	RelationTemporalProximity: {bidirectional: true},
}

// Valid reports whether the kind belongs to the fixed vocabulary.
func (k RelationKind) Valid() bool {
	_, ok := relationKinds[k]
	return ok
}

// Bidirectional reports whether edges of this kind must carry a mirror edge.
func (k RelationKind) Bidirectional() bool {
	return relationKinds[k].bidirectional
}

// RelationKinds returns the full vocabulary, useful for traversal defaults.
func RelationKinds() []RelationKind {
	return []RelationKind{
		RelationSimilar,
		RelationRelated,
		RelationPrerequisite,
		RelationFollows,
		RelationContradicts,
		RelationElaborates,
		RelationExampleOf,
		RelationTemporalProximity,
	}
}

// Edge is a typed, directed, weighted connection between two records.
type Edge struct {
	Source        string       `json:"source"`
	Target        string       `json:"target"`
	Kind          RelationKind `json:"kind"`
	Strength      float64      `json:"strength"`
	Bidirectional bool         `json:"bidirectional"`
	Concept       string       `json:"concept,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Mirror returns the reverse half of a bidirectional edge with identical strength.
func (e Edge) Mirror() Edge {
	m := e
	m.Source, m.Target = e.Target, e.Source
	return m
}

// Validate ensures the edge definition is usable.
func (e Edge) Validate() error {
	if e.Source == "" || e.Target == "" {
		return errors.New("edge endpoints must be non-empty")
	}
	if e.Source == e.Target {
		return errors.New("edge cannot point at its own source")
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("unsupported relation kind %q", e.Kind)
	}
	if e.Strength <= 0 || e.Strength > 1 {
		return fmt.Errorf("edge strength %.3f outside (0,1]", e.Strength)
	}
	return nil
}
