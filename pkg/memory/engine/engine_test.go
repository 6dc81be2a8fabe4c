package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindvault/memoria/pkg/memory/embed"
	"github.com/mindvault/memoria/pkg/memory/fusion"
	"github.com/mindvault/memoria/pkg/memory/graph"
	"github.com/mindvault/memoria/pkg/memory/model"
)

func newTestEngine(t *testing.T, mutate func(*Options)) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.EmbeddingDimension = 32
	opts.Embedder = embed.NewHashEmbedder(32)
	opts.CacheQueryEmbeddings = false
	if mutate != nil {
		mutate(&opts)
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func TestConstructionRejectsBadDimension(t *testing.T) {
	opts := DefaultOptions()
	opts.EmbeddingDimension = -1
	_, err := New(opts)
	require.Error(t, err)
}

func TestStoreAssignsIDFingerprintImportance(t *testing.T) {
	e := newTestEngine(t, nil)
	res, err := e.Store(context.Background(), StoreInput{Content: "A quantum qubit holds superposition."})
	require.NoError(t, err)

	assert.Contains(t, res.ID, "mem_")
	assert.Equal(t, model.Fingerprint("A quantum qubit holds superposition."), res.Fingerprint)
	assert.Len(t, res.Embedding, 32)
	assert.Equal(t, StateComplete, res.State)
	assert.False(t, res.Degraded)

	rec, err := e.Get(res.ID)
	require.NoError(t, err)
	assert.Equal(t, "quantum_computing", rec.Category) // inferred
	assert.Equal(t, model.DefaultKind, rec.Kind)
	assert.NotEmpty(t, rec.Tags)
	assert.Equal(t, "en", rec.Metadata["language"])
	assert.Equal(t, "neutral", rec.Metadata["sentiment"])
	assert.Equal(t, 1.0, rec.Importance) // base + kind + category weight, clamped
}

func TestStoreRejectsEmptyContent(t *testing.T) {
	e := newTestEngine(t, nil)
	_, err := e.Store(context.Background(), StoreInput{Content: "   \n"})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "content", verr.Field)
}

func TestStoreRejectsFailingEmbedder(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		o.Embedder = errorEmbedder{}
	})
	_, err := e.Store(context.Background(), StoreInput{Content: "anything"})
	var eerr *model.EmbeddingError
	require.ErrorAs(t, err, &eerr)
	// nothing became visible
	assert.Equal(t, 0, e.Analytics().TotalRecords)
}

type errorEmbedder struct{}

func (errorEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("provider down")
}

type wrongDimEmbedder struct{}

func (wrongDimEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}

func TestStoreRejectsWrongDimension(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		o.Embedder = wrongDimEmbedder{}
	})
	_, err := e.Store(context.Background(), StoreInput{Content: "anything"})
	var eerr *model.EmbeddingError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, 3, eerr.Got)
	assert.Equal(t, 32, eerr.Want)
}

func TestCapacityLimit(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		o.MaxCapacity = 2
	})
	ctx := context.Background()
	_, err := e.Store(ctx, StoreInput{Content: "first"})
	require.NoError(t, err)
	_, err = e.Store(ctx, StoreInput{Content: "second"})
	require.NoError(t, err)
	_, err = e.Store(ctx, StoreInput{Content: "third"})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "capacity", verr.Field)
}

func TestAutoRebuildEveryNWrites(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		o.AutoOptimizeEveryNWrites = 100
		o.MaxCapacity = 1000
	})
	ctx := context.Background()

	for i := 0; i < 99; i++ {
		_, err := e.Store(ctx, StoreInput{Content: fmt.Sprintf("distinct record number %d payload", i)})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(0), e.metrics.Snapshot().FullRebuilds)

	_, err := e.Store(ctx, StoreInput{Content: "the one hundredth record payload"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.metrics.Snapshot().FullRebuilds)

	for i := 100; i < 150; i++ {
		_, err := e.Store(ctx, StoreInput{Content: fmt.Sprintf("distinct record number %d payload", i)})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), e.metrics.Snapshot().FullRebuilds)
}

func TestRetrieveReRanksWithoutChangingMembership(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.Store(ctx, StoreInput{Content: "gradient descent tunes neural network weights"})
	require.NoError(t, err)
	_, err = e.Store(ctx, StoreInput{Content: "neural network weights"})
	require.NoError(t, err)

	opts := fusion.DefaultOptions()
	opts.Threshold = 0.1
	res, err := e.Retrieve(ctx, "neural network weights", opts)
	require.NoError(t, err)
	require.NotEmpty(t, res.Results)

	for i := 1; i < len(res.Results); i++ {
		assert.GreaterOrEqual(t, res.Results[i-1].IntelligentRank, res.Results[i].IntelligentRank)
	}
}

func TestFindRelated(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	a, err := e.Store(ctx, StoreInput{Content: "shared concept alpha beta"})
	require.NoError(t, err)
	_, err = e.Store(ctx, StoreInput{Content: "shared concept alpha beta"})
	require.NoError(t, err)

	ids, err := e.FindRelated(a.ID, graph.TraversalOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, ids)

	_, err = e.FindRelated("mem_unknown", graph.TraversalOptions{})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestOptimizeReport(t *testing.T) {
	e := newTestEngine(t, nil)
	report, err := e.Optimize(context.Background(), OptimizeOptions{RebuildIndex: true})
	require.NoError(t, err)
	assert.Contains(t, report.Actions, "indices_rebuilt")
	assert.Equal(t, int64(1), e.metrics.Snapshot().FullRebuilds)
}

func TestHealthCheckHealthy(t *testing.T) {
	e := newTestEngine(t, nil)
	h := e.HealthCheck()
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Equal(t, "healthy", h.Components["graph"])
	assert.Equal(t, "disabled", h.Components["persistence"])
}

func TestAnalyticsUtilization(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		o.MaxCapacity = 10
	})
	ctx := context.Background()
	_, err := e.Store(ctx, StoreInput{Content: "utilization probe one"})
	require.NoError(t, err)

	a := e.Analytics()
	assert.Equal(t, 1, a.TotalRecords)
	assert.Equal(t, 9, a.AvailableSpace)
	assert.InDelta(t, 10.0, a.UtilizationPct, 1e-9)
	assert.NotEmpty(t, a.Trending)
}

func TestBootstrapFromPersister(t *testing.T) {
	p := &memoryPersister{}
	seed := newTestEngine(t, func(o *Options) { o.Persister = p })
	_, err := seed.Store(context.Background(), StoreInput{Content: "durable record body"})
	require.NoError(t, err)
	p.wait()

	fresh := newTestEngine(t, func(o *Options) { o.Persister = p })
	require.NoError(t, fresh.Bootstrap(context.Background()))
	assert.Equal(t, 1, fresh.Analytics().TotalRecords)
}

// memoryPersister is an in-process Persister for tests.
type memoryPersister struct {
	mu      sync.Mutex
	records []*model.Record
}

func (p *memoryPersister) SaveRecord(_ context.Context, rec *model.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := rec.Clone()
	p.records = append(p.records, &clone)
	return nil
}

func (p *memoryPersister) LoadRecords(context.Context) ([]*model.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*model.Record, len(p.records))
	for i, r := range p.records {
		clone := r.Clone()
		out[i] = &clone
	}
	return out, nil
}

func (p *memoryPersister) Close(context.Context) error { return nil }

// wait gives the fire-and-forget save goroutine time to land.
func (p *memoryPersister) wait() {
	for i := 0; i < 100; i++ {
		p.mu.Lock()
		n := len(p.records)
		p.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHeuristicClassifier(t *testing.T) {
	ctx := context.Background()
	c := HeuristicClassifier{}

	lang, err := c.Language(ctx, "plain english text")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	lang, err = c.Language(ctx, "مرحبا بالعالم")
	require.NoError(t, err)
	assert.Equal(t, "ar", lang)

	s, err := c.Sentiment(ctx, "this was a great and wonderful day")
	require.NoError(t, err)
	assert.Equal(t, "positive", s)

	s, err = c.Sentiment(ctx, "a terrible awful outcome")
	require.NoError(t, err)
	assert.Equal(t, "negative", s)

	s, err = c.Sentiment(ctx, "completely ordinary text")
	require.NoError(t, err)
	assert.Equal(t, "neutral", s)
}

func TestEnrichmentHelpers(t *testing.T) {
	assert.Equal(t, "quantum_computing", inferCategory("all about Qubit gates"))
	assert.Equal(t, "algorithms", inferCategory("sorting algorithm notes"))
	assert.Equal(t, model.DefaultCategory, inferCategory("birdwatching log"))

	tags := autoTags("memory memory memory system system index")
	require.NotEmpty(t, tags)
	assert.Equal(t, "memory", tags[0])

	// the trailing period yields an empty sentence segment, so 5 words / 2 segments
	assert.InDelta(t, 0.125, complexityScore("one two three four five."), 1e-9)
	assert.Equal(t, 1.0, importanceScore(string(make([]byte, 1200)), "critical", "ai_education"))
}
