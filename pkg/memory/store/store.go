// Package store holds the durability sinks. Similarity search and graph
// traversal stay in-process; these stores only persist and reload records.
package store

import (
	"context"

	"github.com/mindvault/memoria/pkg/memory/model"
)

// Persister saves records for recovery across restarts. Implementations
// must tolerate being called from a background goroutine.
type Persister interface {
	SaveRecord(ctx context.Context, rec *model.Record) error
	LoadRecords(ctx context.Context) ([]*model.Record, error)
	Close(ctx context.Context) error
}
