// Package memoria is a hybrid semantic memory engine: text records are
// embedded, indexed for similarity search, linked in a typed relationship
// graph and retrieved through multi-strategy query fusion.
//
// The façade re-exports the engine surface so most callers only import
// this package:
//
//	eng, err := memoria.New(memoria.DefaultOptions())
//	res, err := eng.Store(ctx, memoria.StoreInput{Content: "..."})
//	out, err := eng.Retrieve(ctx, "what do I know about qubits?", nil)
package memoria

import (
	"github.com/mindvault/memoria/pkg/memory/engine"
	"github.com/mindvault/memoria/pkg/memory/fusion"
	"github.com/mindvault/memoria/pkg/memory/graph"
	"github.com/mindvault/memoria/pkg/memory/model"
)

type (
	Engine         = engine.Engine
	Options        = engine.Options
	StoreInput     = engine.StoreInput
	StoreResult    = engine.StoreResult
	RetrieveResult = engine.RetrieveResult
	RankedResult   = engine.RankedResult
	Health         = engine.Health
	Analytics      = engine.Analytics
	Classifier     = engine.Classifier

	Record       = model.Record
	Edge         = model.Edge
	RelationKind = model.RelationKind

	RetrieveOptions  = fusion.Options
	TimeRange        = fusion.TimeRange
	TraversalOptions = graph.TraversalOptions
)

var (
	New            = engine.New
	DefaultOptions = engine.DefaultOptions

	DefaultRetrieveOptions = fusion.DefaultOptions

	ErrNotFound = model.ErrNotFound
)

// Relation kinds, re-exported for callers filtering findRelated traversals.
const (
	RelationSimilar           = model.RelationSimilar
	RelationRelated           = model.RelationRelated
	RelationPrerequisite      = model.RelationPrerequisite
	RelationFollows           = model.RelationFollows
	RelationContradicts       = model.RelationContradicts
	RelationElaborates        = model.RelationElaborates
	RelationExampleOf         = model.RelationExampleOf
	RelationTemporalProximity = model.RelationTemporalProximity
)
