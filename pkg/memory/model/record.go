package model

import "time"

// Record is the unit of memory held by the vector index.
type Record struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	Kind           string         `json:"kind"`
	Category       string         `json:"category"`
	Tags           []string       `json:"tags,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Embedding      []float32      `json:"embedding"`
	Fingerprint    string         `json:"fingerprint"`
	Importance     float64        `json:"importance"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at"`
	AccessCount    int64          `json:"access_count"`
	Relationships  []Edge         `json:"relationships,omitempty"`
}

// DefaultKind and DefaultCategory classify records whose caller supplied none.
const (
	DefaultKind     = "general"
	DefaultCategory = "default"
)

// Clone returns a deep copy so callers can hold a record across concurrent writes.
func (r Record) Clone() Record {
	cp := r
	cp.Tags = append([]string(nil), r.Tags...)
	cp.Embedding = append([]float32(nil), r.Embedding...)
	cp.Relationships = append([]Edge(nil), r.Relationships...)
	if r.Metadata != nil {
		cp.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}

// Age reports how old the record is relative to now.
func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}
