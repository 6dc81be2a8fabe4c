package fusion

import (
	"sync"
	"time"
)

// HistoryEntry records one completed retrieval.
type HistoryEntry struct {
	Query        string
	ResultCount  int
	AvgRelevance float64
	At           time.Time
}

// History keeps the most recent retrievals, bounded by capacity. The last
// five feed the contextual strategy.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
	cap     int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 50
	}
	return &History{cap: capacity}
}

func (h *History) Add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if len(h.entries) > h.cap {
		h.entries = h.entries[len(h.entries)-h.cap:]
	}
}

// Recent returns up to n entries, newest last.
func (h *History) Recent(n int) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > len(h.entries) {
		n = len(h.entries)
	}
	return append([]HistoryEntry(nil), h.entries[len(h.entries)-n:]...)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// AvgQueryLength reports the mean query length across the retained history.
func (h *History) AvgQueryLength() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return 0
	}
	total := 0
	for _, e := range h.entries {
		total += len(e.Query)
	}
	return float64(total) / float64(len(h.entries))
}
