// Package index holds the in-memory vector index: fingerprint-addressed
// records, linear cosine scans and greedy centroid clusters.
package index

import (
	"sync"
	"time"

	"github.com/mindvault/memoria/pkg/memory/model"
)

// Cluster groups records whose embeddings sit near a shared centroid.
type Cluster struct {
	ID        string
	Centroid  []float32
	Members   []string
	CreatedAt time.Time
}

// Match is a record paired with its similarity to a probe vector.
type Match struct {
	Record *model.Record
	Score  float64
}

// Index is safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	records       map[string]*model.Record
	order         []string // insertion order, drives deterministic iteration
	byFingerprint map[string][]string

	clusters         []*Cluster
	clusterThreshold float64
	nextClusterID    int
}

func New(clusterThreshold float64) *Index {
	if clusterThreshold <= 0 || clusterThreshold > 1 {
		clusterThreshold = 0.8
	}
	return &Index{
		records:          make(map[string]*model.Record),
		byFingerprint:    make(map[string][]string),
		clusterThreshold: clusterThreshold,
	}
}

// Insert stores the record and assigns it to a cluster. Records whose
// fingerprint already exists are still stored under their own id; exact
// lookup resolves to every holder of the fingerprint.
func (ix *Index) Insert(rec *model.Record) error {
	if rec == nil || rec.ID == "" {
		return &model.ValidationError{Field: "id", Reason: "missing"}
	}
	if len(rec.Embedding) == 0 {
		return &model.ValidationError{Field: "embedding", Reason: "empty"}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	fresh := false
	if _, exists := ix.records[rec.ID]; !exists {
		ix.order = append(ix.order, rec.ID)
		fresh = true
	}
	ix.records[rec.ID] = rec
	if rec.Fingerprint != "" && fresh {
		ix.byFingerprint[rec.Fingerprint] = append(ix.byFingerprint[rec.Fingerprint], rec.ID)
	}
	ix.assignClusterLocked(rec)
	return nil
}

// assignClusterLocked places the record into the first cluster whose centroid
// clears the threshold, recomputing that centroid; otherwise it seeds a new
// single-member cluster.
func (ix *Index) assignClusterLocked(rec *model.Record) {
	for _, c := range ix.clusters {
		if model.CosineSimilarity(rec.Embedding, c.Centroid) >= ix.clusterThreshold {
			c.Members = append(c.Members, rec.ID)
			c.Centroid = ix.centroidLocked(c.Members)
			return
		}
	}
	ix.nextClusterID++
	ix.clusters = append(ix.clusters, &Cluster{
		ID:        clusterID(ix.nextClusterID),
		Centroid:  append([]float32(nil), rec.Embedding...),
		Members:   []string{rec.ID},
		CreatedAt: time.Now(),
	})
}

func clusterID(n int) string {
	const digits = "0123456789"
	if n == 0 {
		return "cluster_0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n%10]
		n /= 10
	}
	return "cluster_" + string(buf[i:])
}

func (ix *Index) centroidLocked(members []string) []float32 {
	vecs := make([][]float32, 0, len(members))
	for _, id := range members {
		if r, ok := ix.records[id]; ok {
			vecs = append(vecs, r.Embedding)
		}
	}
	return model.MeanVector(vecs)
}

// SimilaritySearch returns every record whose cosine similarity to the probe
// meets the threshold, in insertion order. Callers rank the matches.
func (ix *Index) SimilaritySearch(probe []float32, threshold float64, limit int) []Match {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []Match
	for _, id := range ix.order {
		rec := ix.records[id]
		score := model.CosineSimilarity(probe, rec.Embedding)
		if score >= threshold {
			out = append(out, Match{Record: rec, Score: score})
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// ExactLookup resolves a fingerprint to every record holding it, in
// insertion order. Unknown fingerprints yield nil.
func (ix *Index) ExactLookup(fingerprint string) []*model.Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ids, ok := ix.byFingerprint[fingerprint]
	if !ok {
		return nil
	}
	out := make([]*model.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := ix.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out
}

func (ix *Index) Get(id string) (*model.Record, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.records[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return rec, nil
}

// Touch bumps access bookkeeping for a retrieved record.
func (ix *Index) Touch(id string, at time.Time) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if rec, ok := ix.records[id]; ok {
		rec.AccessCount++
		rec.LastAccessedAt = at
	}
}

// AttachEdges appends relationship halves onto their owning records under a
// single lock, so a mirrored pair becomes visible atomically.
func (ix *Index) AttachEdges(edges []model.Edge) {
	if len(edges) == 0 {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, e := range edges {
		if rec, ok := ix.records[e.Source]; ok {
			rec.Relationships = append(rec.Relationships, e)
		}
	}
}

// All returns the records in insertion order. The slice is fresh; the records
// are shared.
func (ix *Index) All() []*model.Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*model.Record, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.records[id])
	}
	return out
}

func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Clusters returns a snapshot of cluster membership.
func (ix *Index) Clusters() []*Cluster {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*Cluster, len(ix.clusters))
	for i, c := range ix.clusters {
		out[i] = &Cluster{
			ID:        c.ID,
			Centroid:  append([]float32(nil), c.Centroid...),
			Members:   append([]string(nil), c.Members...),
			CreatedAt: c.CreatedAt,
		}
	}
	return out
}

// RebuildClusters reclusters every record from scratch and swaps the result
// in. The rebuild happens on a snapshot so readers are only blocked for the
// final swap.
func (ix *Index) RebuildClusters() int {
	ix.mu.RLock()
	ids := append([]string(nil), ix.order...)
	recs := make(map[string]*model.Record, len(ids))
	for _, id := range ids {
		recs[id] = ix.records[id]
	}
	threshold := ix.clusterThreshold
	ix.mu.RUnlock()

	var fresh []*Cluster
	next := 0
	for _, id := range ids {
		rec := recs[id]
		placed := false
		for _, c := range fresh {
			if model.CosineSimilarity(rec.Embedding, c.Centroid) >= threshold {
				c.Members = append(c.Members, id)
				vecs := make([][]float32, 0, len(c.Members))
				for _, m := range c.Members {
					vecs = append(vecs, recs[m].Embedding)
				}
				c.Centroid = model.MeanVector(vecs)
				placed = true
				break
			}
		}
		if !placed {
			next++
			fresh = append(fresh, &Cluster{
				ID:        clusterID(next),
				Centroid:  append([]float32(nil), rec.Embedding...),
				Members:   []string{id},
				CreatedAt: time.Now(),
			})
		}
	}

	ix.mu.Lock()
	ix.clusters = fresh
	ix.nextClusterID = next
	ix.mu.Unlock()
	return len(fresh)
}

// Stats summarizes the index for analytics and health checks.
type Stats struct {
	Records      int
	Clusters     int
	AvgClusterSz float64
}

func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s := Stats{Records: len(ix.records), Clusters: len(ix.clusters)}
	if s.Clusters > 0 {
		total := 0
		for _, c := range ix.clusters {
			total += len(c.Members)
		}
		s.AvgClusterSz = float64(total) / float64(s.Clusters)
	}
	return s
}
