package engine

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mindvault/memoria/pkg/memory/embed"
	"github.com/mindvault/memoria/pkg/memory/fusion"
	"github.com/mindvault/memoria/pkg/memory/graph"
	"github.com/mindvault/memoria/pkg/memory/store"
)

// Options configure an Engine. Zero values pick the defaults below; the
// only unrecoverable misconfiguration is rejected at construction time.
type Options struct {
	// EmbeddingDimension is the vector length every provider must produce.
	EmbeddingDimension int

	// SimilarityThreshold gates similarity search hits.
	SimilarityThreshold float64

	// ClusterThreshold gates greedy centroid cluster membership.
	ClusterThreshold float64

	// RelationshipThreshold gates concept and embedding edges in the graph.
	RelationshipThreshold float64

	// MaxQueryHistory bounds the retrieval history ring.
	MaxQueryHistory int

	// AutoOptimizeEveryNWrites triggers a full index rebuild on every Nth
	// successful write.
	AutoOptimizeEveryNWrites int

	// MaxCapacity rejects writes once the index holds this many records.
	MaxCapacity int

	// CacheQueryEmbeddings fronts the provider with an in-memory cache for
	// query-side embeds. Write-side embeds always hit the provider.
	CacheQueryEmbeddings bool

	Embedder   embed.Embedder
	Extractor  graph.Extractor
	Synonyms   fusion.SynonymProvider
	Classifier Classifier
	Persister  store.Persister
	Mirror     *store.Neo4jMirror

	Logger *log.Logger
	Clock  func() time.Time
}

const (
	defaultDimension      = 384
	defaultSimilarity     = 0.7
	defaultCluster        = 0.8
	defaultRelationship   = 0.6
	defaultHistory        = 50
	defaultOptimizeEveryN = 100
	defaultMaxCapacity    = 10000
)

func DefaultOptions() Options {
	return Options{
		EmbeddingDimension:       defaultDimension,
		SimilarityThreshold:      defaultSimilarity,
		ClusterThreshold:         defaultCluster,
		RelationshipThreshold:    defaultRelationship,
		MaxQueryHistory:          defaultHistory,
		AutoOptimizeEveryNWrites: defaultOptimizeEveryN,
		MaxCapacity:              defaultMaxCapacity,
		CacheQueryEmbeddings:     true,
	}
}

func (o Options) withDefaults() (Options, error) {
	if o.EmbeddingDimension == 0 {
		o.EmbeddingDimension = defaultDimension
	}
	if o.EmbeddingDimension < 0 {
		return o, fmt.Errorf("engine: embedding dimension must be positive, got %d", o.EmbeddingDimension)
	}
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = defaultSimilarity
	}
	if o.SimilarityThreshold < 0 || o.SimilarityThreshold > 1 {
		return o, fmt.Errorf("engine: similarity threshold out of range: %v", o.SimilarityThreshold)
	}
	if o.ClusterThreshold == 0 {
		o.ClusterThreshold = defaultCluster
	}
	if o.ClusterThreshold < 0 || o.ClusterThreshold > 1 {
		return o, fmt.Errorf("engine: cluster threshold out of range: %v", o.ClusterThreshold)
	}
	if o.RelationshipThreshold == 0 {
		o.RelationshipThreshold = defaultRelationship
	}
	if o.MaxQueryHistory <= 0 {
		o.MaxQueryHistory = defaultHistory
	}
	if o.AutoOptimizeEveryNWrites <= 0 {
		o.AutoOptimizeEveryNWrites = defaultOptimizeEveryN
	}
	if o.MaxCapacity <= 0 {
		o.MaxCapacity = defaultMaxCapacity
	}
	if o.Embedder == nil {
		o.Embedder = embed.NewHashEmbedder(o.EmbeddingDimension)
	}
	if o.Classifier == nil {
		o.Classifier = HeuristicClassifier{}
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o, nil
}
