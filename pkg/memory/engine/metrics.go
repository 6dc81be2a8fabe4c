package engine

import "sync/atomic"

// Metrics are cheap atomic counters, safe to read while the engine runs.
type Metrics struct {
	stores            atomic.Int64
	storeFailures     atomic.Int64
	retrievals        atomic.Int64
	retrievalFailures atomic.Int64
	fullRebuilds      atomic.Int64
	graphDegradations atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Stores            int64
	StoreFailures     int64
	Retrievals        int64
	RetrievalFailures int64
	FullRebuilds      int64
	GraphDegradations int64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Stores:            m.stores.Load(),
		StoreFailures:     m.storeFailures.Load(),
		Retrievals:        m.retrievals.Load(),
		RetrievalFailures: m.retrievalFailures.Load(),
		FullRebuilds:      m.fullRebuilds.Load(),
		GraphDegradations: m.graphDegradations.Load(),
	}
}
