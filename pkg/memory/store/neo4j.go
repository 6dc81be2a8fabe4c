package store

import (
	"context"

	"github.com/mindvault/memoria/pkg/memory/model"
)

// CypherRunner abstracts the Neo4j driver so the mirror can be exercised
// without the real dependency. WrapNeo4jDriver (behind the neo4j build tag)
// adapts the official driver.
type CypherRunner interface {
	Run(ctx context.Context, query string, params map[string]any) error
	Close(ctx context.Context) error
}

// Neo4jMirror replays graph mutations into Neo4j. It is a write-only
// mirror; traversal still runs against the in-process graph.
type Neo4jMirror struct {
	runner CypherRunner
}

func NewNeo4jMirror(runner CypherRunner) *Neo4jMirror {
	return &Neo4jMirror{runner: runner}
}

func (m *Neo4jMirror) MirrorNode(ctx context.Context, rec *model.Record, concepts []string) error {
	if m == nil || m.runner == nil {
		return nil
	}
	return m.runner.Run(ctx, `
                MERGE (r:Memory {id: $id})
                SET r.kind = $kind, r.category = $category,
                    r.importance = $importance, r.created_at = $created_at,
                    r.concepts = $concepts
        `, map[string]any{
		"id":         rec.ID,
		"kind":       rec.Kind,
		"category":   rec.Category,
		"importance": rec.Importance,
		"created_at": rec.CreatedAt,
		"concepts":   concepts,
	})
}

func (m *Neo4jMirror) MirrorEdge(ctx context.Context, e model.Edge) error {
	if m == nil || m.runner == nil {
		return nil
	}
	return m.runner.Run(ctx, `
                MATCH (a:Memory {id: $source}), (b:Memory {id: $target})
                MERGE (a)-[rel:RELATES {kind: $kind}]->(b)
                SET rel.strength = $strength, rel.concept = $concept
        `, map[string]any{
		"source":   e.Source,
		"target":   e.Target,
		"kind":     string(e.Kind),
		"strength": e.Strength,
		"concept":  e.Concept,
	})
}

func (m *Neo4jMirror) Close(ctx context.Context) error {
	if m == nil || m.runner == nil {
		return nil
	}
	return m.runner.Close(ctx)
}
