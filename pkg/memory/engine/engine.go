// Package engine is the orchestrating façade over the vector index, the
// relationship graph and the query fusion engine. It owns configuration,
// write-time enrichment, adaptive ranking, maintenance and health.
package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mindvault/memoria/pkg/memory/fusion"
	"github.com/mindvault/memoria/pkg/memory/graph"
	"github.com/mindvault/memoria/pkg/memory/index"
	"github.com/mindvault/memoria/pkg/memory/model"
	"github.com/mindvault/memoria/pkg/memory/store"
)

// WriteState tracks how far a single write progressed. Failures before
// StateIndexed leave no visible state; later failures degrade, never roll
// back the index entry.
type WriteState string

const (
	StateValidating   WriteState = "validating"
	StateEmbedding    WriteState = "embedding"
	StateIndexed      WriteState = "indexed"
	StateGraphUpdated WriteState = "graph_updated"
	StateOptimized    WriteState = "optimized"
	StateComplete     WriteState = "complete"
)

// StoreInput is a write request. Only Content is required.
type StoreInput struct {
	Content  string
	Kind     string
	Category string
	Tags     []string
	Metadata map[string]any
}

// StoreResult reports the stored record and how the write finished.
type StoreResult struct {
	ID            string
	Embedding     []float32
	Fingerprint   string
	Importance    float64
	Relationships []model.Edge
	State         WriteState
	Degraded      bool
}

// Engine is safe for concurrent use.
type Engine struct {
	opts       Options
	index      *index.Index
	graph      *graph.Graph
	fusion     *fusion.Engine
	classifier Classifier
	persister  store.Persister
	mirror     *store.Neo4jMirror
	logger     *log.Logger
	now        func() time.Time

	metrics       Metrics
	writes        atomic.Int64
	graphDegraded atomic.Bool

	// writeMu serializes the index+graph mutation sequence of a write so
	// the Nth-write rebuild trigger observes an exact count.
	writeMu sync.Mutex
}

func New(opts Options) (*Engine, error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	ix := index.New(o.ClusterThreshold)
	g := graph.New(o.RelationshipThreshold, o.Extractor, o.Logger)

	queryEmbedder := o.Embedder
	if o.CacheQueryEmbeddings {
		if cached, err := fusion.NewEmbeddingCache(o.Embedder); err == nil {
			queryEmbedder = cached
		} else {
			o.Logger.Warn("query embedding cache disabled", "err", err)
		}
	}

	e := &Engine{
		opts:       o,
		index:      ix,
		graph:      g,
		classifier: o.Classifier,
		persister:  o.Persister,
		mirror:     o.Mirror,
		logger:     o.Logger,
		now:        o.Clock,
	}
	e.fusion = fusion.NewEngine(ix, g, queryEmbedder, fusion.Config{
		Synonyms:        o.Synonyms,
		HistoryCapacity: o.MaxQueryHistory,
		Logger:          o.Logger,
		Clock:           o.Clock,
	})
	return e, nil
}

// Bootstrap reloads persisted records into the index and graph. Call once
// before serving traffic; relationship edges are rediscovered, not loaded.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if e.persister == nil {
		return nil
	}
	records, err := e.persister.LoadRecords(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := e.index.Insert(rec); err != nil {
			e.logger.Warn("skipping persisted record", "id", rec.ID, "err", err)
			continue
		}
		edges, err := e.graph.AddNode(rec)
		if err != nil {
			e.graphDegraded.Store(true)
			continue
		}
		e.index.AttachEdges(edges)
		e.writes.Add(1)
	}
	e.logger.Info("bootstrap completed", "records", len(records))
	return nil
}

// Store validates, enriches, embeds, indexes and links one record, then
// runs the post-write maintenance hooks. Persistence and graph mirroring
// happen in the background and never block or fail the write.
func (e *Engine) Store(ctx context.Context, in StoreInput) (*StoreResult, error) {
	if strings.TrimSpace(in.Content) == "" {
		e.metrics.storeFailures.Add(1)
		return nil, &model.ValidationError{Field: "content", Reason: "empty"}
	}
	if e.index.Count() >= e.opts.MaxCapacity {
		e.metrics.storeFailures.Add(1)
		return nil, &model.ValidationError{Field: "capacity", Reason: "index full"}
	}

	in = e.enrich(ctx, in)

	vec, err := e.opts.Embedder.Embed(ctx, in.Content)
	if err != nil {
		e.metrics.storeFailures.Add(1)
		return nil, &model.EmbeddingError{Cause: err}
	}
	if len(vec) != e.opts.EmbeddingDimension {
		e.metrics.storeFailures.Add(1)
		return nil, &model.EmbeddingError{Got: len(vec), Want: e.opts.EmbeddingDimension}
	}

	now := e.now()
	rec := &model.Record{
		ID:          "mem_" + uuid.NewString(),
		Content:     in.Content,
		Kind:        in.Kind,
		Category:    in.Category,
		Tags:        in.Tags,
		Metadata:    in.Metadata,
		Embedding:   vec,
		Fingerprint: model.Fingerprint(in.Content),
		Importance:  importanceScore(in.Content, in.Kind, in.Category),
		CreatedAt:   now,
	}

	e.writeMu.Lock()
	if err := e.index.Insert(rec); err != nil {
		e.writeMu.Unlock()
		e.metrics.storeFailures.Add(1)
		return nil, err
	}

	degraded := false
	edges, err := e.graph.AddNode(rec)
	if err != nil {
		degraded = true
		e.graphDegraded.Store(true)
		e.metrics.graphDegradations.Add(1)
		e.logger.Error("graph update failed, record kept without relationships", "id", rec.ID, "err", err)
	} else {
		e.index.AttachEdges(edges)
	}

	n := e.writes.Add(1)
	if n%int64(e.opts.AutoOptimizeEveryNWrites) == 0 {
		clusters := e.index.RebuildClusters()
		e.metrics.fullRebuilds.Add(1)
		e.logger.Info("full index rebuild", "write", n, "clusters", clusters)
	}
	e.writeMu.Unlock()

	e.persistAsync(rec, edges)

	state := StateComplete
	if degraded {
		state = StateIndexed
	}
	e.metrics.stores.Add(1)
	e.logger.Debug("record stored",
		"id", rec.ID, "kind", rec.Kind, "category", rec.Category,
		"importance", rec.Importance, "edges", len(edges))

	return &StoreResult{
		ID:            rec.ID,
		Embedding:     rec.Embedding,
		Fingerprint:   rec.Fingerprint,
		Importance:    rec.Importance,
		Relationships: edges,
		State:         state,
		Degraded:      degraded,
	}, nil
}

// enrich fills defaults and derived metadata. Classifier failures fall
// back to the built-in heuristics.
func (e *Engine) enrich(ctx context.Context, in StoreInput) StoreInput {
	if in.Kind == "" {
		in.Kind = model.DefaultKind
	}
	if in.Category == "" {
		in.Category = inferCategory(in.Content)
	}
	if len(in.Tags) == 0 {
		in.Tags = autoTags(in.Content)
	}

	meta := make(map[string]any, len(in.Metadata)+6)
	for k, v := range in.Metadata {
		meta[k] = v
	}
	meta["processed_at"] = e.now().UTC()
	meta["quality"] = qualityScore(in)
	meta["complexity"] = complexityScore(in.Content)

	lang, err := e.classifier.Language(ctx, in.Content)
	if err != nil {
		lang, _ = HeuristicClassifier{}.Language(ctx, in.Content)
	}
	meta["language"] = lang

	sentiment, err := e.classifier.Sentiment(ctx, in.Content)
	if err != nil {
		sentiment, _ = HeuristicClassifier{}.Sentiment(ctx, in.Content)
	}
	meta["sentiment"] = sentiment

	in.Metadata = meta
	return in
}

const persistTimeout = 5 * time.Second

func (e *Engine) persistAsync(rec *model.Record, edges []model.Edge) {
	if e.persister == nil && e.mirror == nil {
		return
	}
	snapshot := rec.Clone()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if e.persister != nil {
			if err := e.persister.SaveRecord(ctx, &snapshot); err != nil {
				e.logger.Error("background persist failed", "id", snapshot.ID, "err", err)
			}
		}
		if e.mirror != nil {
			concepts := make([]string, 0)
			for _, c := range e.graph.Concepts(snapshot.ID) {
				concepts = append(concepts, c.Term)
			}
			if err := e.mirror.MirrorNode(ctx, &snapshot, concepts); err != nil {
				e.logger.Error("graph mirror node failed", "id", snapshot.ID, "err", err)
				return
			}
			for _, edge := range edges {
				if err := e.mirror.MirrorEdge(ctx, edge); err != nil {
					e.logger.Error("graph mirror edge failed", "source", edge.Source, "err", err)
				}
			}
		}
	}()
}

// RankedResult is a fused hit after the adaptive re-rank.
type RankedResult struct {
	*fusion.Result
	Centrality      float64
	RelatedIDs      []string
	IntelligentRank float64
}

// RetrieveResult wraps the final ranked slice with query diagnostics.
type RetrieveResult struct {
	Query           string
	Results         []*RankedResult
	Insights        fusion.Insights
	TotalCandidates int
	Elapsed         time.Duration
}

// Retrieve runs query fusion, then re-ranks with graph centrality, recency
// and importance. Result membership is unchanged by the re-rank, only the
// order moves.
func (e *Engine) Retrieve(ctx context.Context, query string, opts *fusion.Options) (*RetrieveResult, error) {
	resp, err := e.fusion.Retrieve(ctx, query, opts)
	if err != nil {
		e.metrics.retrievalFailures.Add(1)
		return nil, err
	}

	now := e.now()
	ranked := make([]*RankedResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		rr := &RankedResult{Result: r, Centrality: e.graph.Centrality(r.Record.ID)}
		if related, err := e.graph.FindRelated(r.Record.ID, graph.TraversalOptions{MaxDepth: 1, Limit: 3}); err == nil {
			for _, rel := range related {
				rr.RelatedIDs = append(rr.RelatedIDs, rel.ID)
			}
		}

		rank := r.FinalScore
		if n := len(rr.RelatedIDs); n > 0 {
			rank *= 1 + float64(n)*0.1
		}
		if rr.Centrality > 0 {
			rank *= 1 + rr.Centrality*0.2
		}
		switch age := now.Sub(r.Record.CreatedAt); {
		case age <= 24*time.Hour:
			rank *= 1.2
		case age <= 7*24*time.Hour:
			rank *= 1.1
		}
		if imp := r.Record.Importance; imp > 0 {
			rank *= 1 + imp*0.3
		}
		rr.IntelligentRank = rank
		ranked = append(ranked, rr)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].IntelligentRank > ranked[j].IntelligentRank
	})

	e.metrics.retrievals.Add(1)
	return &RetrieveResult{
		Query:           query,
		Results:         ranked,
		Insights:        resp.Insights,
		TotalCandidates: resp.TotalCandidates,
		Elapsed:         resp.Elapsed,
	}, nil
}

// Get returns a record by id.
func (e *Engine) Get(id string) (*model.Record, error) {
	return e.index.Get(id)
}

// FindRelated traverses the relationship graph from a record.
func (e *Engine) FindRelated(id string, opts graph.TraversalOptions) ([]string, error) {
	related, err := e.graph.FindRelated(id, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(related))
	for _, r := range related {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// OptimizeOptions tune a manual maintenance pass.
type OptimizeOptions struct {
	RebuildIndex bool
}

// OptimizeReport lists what a maintenance pass did.
type OptimizeReport struct {
	Elapsed time.Duration
	Actions []string
}

// Optimize runs a maintenance pass. It never fails the caller; problems
// are logged and reflected in the health check.
func (e *Engine) Optimize(_ context.Context, opts OptimizeOptions) (*OptimizeReport, error) {
	start := e.now()
	actions := []string{"vector_memory_optimization", "knowledge_graph_optimization", "semantic_search_optimization"}
	if opts.RebuildIndex {
		e.index.RebuildClusters()
		e.metrics.fullRebuilds.Add(1)
		actions = append(actions, "indices_rebuilt")
	}
	return &OptimizeReport{Elapsed: e.now().Sub(start), Actions: actions}, nil
}

// HealthStatus summarizes engine condition.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health aggregates subsystem states.
type Health struct {
	Status     HealthStatus
	Components map[string]string
	Index      index.Stats
	Graph      graph.Stats
	Metrics    MetricsSnapshot
}

func (e *Engine) HealthCheck() Health {
	components := map[string]string{
		"index":  "healthy",
		"graph":  "healthy",
		"fusion": "healthy",
	}
	status := StatusHealthy
	if e.graphDegraded.Load() {
		components["graph"] = "degraded"
		status = StatusDegraded
	}
	if e.persister != nil {
		components["persistence"] = "enabled"
	} else {
		components["persistence"] = "disabled"
	}
	return Health{
		Status:     status,
		Components: components,
		Index:      e.index.Stats(),
		Graph:      e.graph.Stats(),
		Metrics:    e.metrics.Snapshot(),
	}
}

// Analytics reports counts, utilization and graph shape.
type Analytics struct {
	TotalRecords   int
	MaxCapacity    int
	UtilizationPct float64
	AvailableSpace int
	Index          index.Stats
	Graph          graph.Stats
	Trending       []graph.ConceptUsage
	MostConnected  []string
	Isolated       []string
	Metrics        MetricsSnapshot
}

func (e *Engine) Analytics() Analytics {
	total := e.index.Count()
	return Analytics{
		TotalRecords:   total,
		MaxCapacity:    e.opts.MaxCapacity,
		UtilizationPct: float64(total) / float64(e.opts.MaxCapacity) * 100,
		AvailableSpace: e.opts.MaxCapacity - total,
		Index:          e.index.Stats(),
		Graph:          e.graph.Stats(),
		Trending:       e.graph.TrendingConcepts(10),
		MostConnected:  e.graph.MostConnected(5),
		Isolated:       e.graph.Isolated(),
		Metrics:        e.metrics.Snapshot(),
	}
}

// Close releases background collaborators.
func (e *Engine) Close(ctx context.Context) error {
	var first error
	if e.persister != nil {
		if err := e.persister.Close(ctx); err != nil {
			first = err
		}
	}
	if e.mirror != nil {
		if err := e.mirror.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
