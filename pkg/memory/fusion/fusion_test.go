package fusion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindvault/memoria/pkg/memory/embed"
	"github.com/mindvault/memoria/pkg/memory/graph"
	"github.com/mindvault/memoria/pkg/memory/index"
	"github.com/mindvault/memoria/pkg/memory/model"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("provider unavailable")
}

type fixture struct {
	ix     *index.Index
	g      *graph.Graph
	engine *Engine
	embed  embed.Embedder
}

func newFixture(t *testing.T, embedder embed.Embedder) *fixture {
	t.Helper()
	if embedder == nil {
		embedder = embed.NewHashEmbedder(64)
	}
	ix := index.New(0.8)
	g := graph.New(0.6, nil, nil)
	return &fixture{
		ix:     ix,
		g:      g,
		engine: NewEngine(ix, g, embedder, Config{}),
		embed:  embedder,
	}
}

func (f *fixture) store(t *testing.T, id, content string, at time.Time) *model.Record {
	t.Helper()
	vec, err := f.embed.Embed(context.Background(), content)
	if err != nil {
		vec = []float32{1, 0, 0}
	}
	rec := &model.Record{
		ID:          id,
		Content:     content,
		Kind:        model.DefaultKind,
		Category:    model.DefaultCategory,
		Embedding:   vec,
		Fingerprint: model.Fingerprint(content),
		Importance:  0.5,
		CreatedAt:   at,
	}
	require.NoError(t, f.ix.Insert(rec))
	edges, err := f.g.AddNode(rec)
	require.NoError(t, err)
	f.ix.AttachEdges(edges)
	return rec
}

func TestExactContentSurfacesRegardlessOfThreshold(t *testing.T) {
	f := newFixture(t, nil)
	f.store(t, "mem_1", "the capital of France is Paris", time.Now())

	opts := DefaultOptions()
	opts.Threshold = 0.99
	resp, err := f.engine.Retrieve(context.Background(), "the capital of France is Paris", opts)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "mem_1", resp.Results[0].Record.ID)
	assert.Contains(t, resp.Results[0].Strategies, strategyExact)
}

func TestEmptyIndexReturnsEmptyNotError(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := f.engine.Retrieve(context.Background(), "anything at all", nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestFailingEmbedderDegradesGracefully(t *testing.T) {
	f := newFixture(t, failingEmbedder{})
	f.store(t, "mem_1", "resilient exact match target", time.Now())

	resp, err := f.engine.Retrieve(context.Background(), "resilient exact match target", DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "mem_1", resp.Results[0].Record.ID)
}

func TestResultsSortedDescending(t *testing.T) {
	f := newFixture(t, nil)
	now := time.Now()
	f.store(t, "a", "neural network training strategies", now)
	f.store(t, "b", "neural network training", now)
	f.store(t, "c", "cooking pasta at home", now)

	opts := DefaultOptions()
	opts.Threshold = 0.1
	resp, err := f.engine.Retrieve(context.Background(), "neural network training", opts)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].FinalScore, resp.Results[i].FinalScore)
	}
}

func TestAccessCountBumpedExactlyOnce(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.store(t, "mem_1", "touch bookkeeping check", time.Now())

	_, err := f.engine.Retrieve(context.Background(), "touch bookkeeping check", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.AccessCount)
	assert.False(t, rec.LastAccessedAt.IsZero())
}

func TestTemporalStrategyWindow(t *testing.T) {
	f := newFixture(t, nil)
	f.store(t, "fresh", "completely unrelated gardening notes", time.Now().Add(-2*time.Hour))
	f.store(t, "stale", "ancient unrelated sailing log", time.Now().Add(-90*24*time.Hour))

	opts := DefaultOptions()
	opts.Threshold = 0.2
	opts.TimeRange = RangeWeek
	resp, err := f.engine.Retrieve(context.Background(), "zzzz qqqq xxxx", opts)
	require.NoError(t, err)

	ids := map[string]*Result{}
	for _, r := range resp.Results {
		ids[r.Record.ID] = r
	}
	require.Contains(t, ids, "fresh")
	assert.NotContains(t, ids, "stale")
	assert.InDelta(t, 0.9, ids["fresh"].TemporalRelevance, 1e-9)
}

func TestCategoryAndKindFilters(t *testing.T) {
	f := newFixture(t, nil)
	a := f.store(t, "a", "filtered retrieval subject", time.Now())
	a.Category = "work"
	b := f.store(t, "b", "filtered retrieval subject two", time.Now())
	b.Category = "home"

	opts := DefaultOptions()
	opts.Threshold = 0.1
	opts.Category = "work"
	resp, err := f.engine.Retrieve(context.Background(), "filtered retrieval subject", opts)
	require.NoError(t, err)
	for _, r := range resp.Results {
		assert.Equal(t, "work", r.Record.Category)
	}
}

func TestLimitCap(t *testing.T) {
	o := Options{Limit: 500}
	assert.Equal(t, maxLimit, o.withDefaults().Limit)

	o = Options{}
	d := o.withDefaults()
	assert.Equal(t, defaultLimit, d.Limit)
	assert.Equal(t, defaultThreshold, d.Threshold)
}

func TestBareOptionsRunEveryStrategy(t *testing.T) {
	f := newFixture(t, nil)
	f.store(t, "mem_1", "zero value options target", time.Now())

	resp, err := f.engine.Retrieve(context.Background(), "zero value options target", &Options{Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Contains(t, resp.Results[0].Strategies, strategyExact)
	assert.Contains(t, resp.Results[0].Strategies, strategyEmbedding)
}

func TestExactMatchSurfacesEveryDuplicate(t *testing.T) {
	f := newFixture(t, nil)
	now := time.Now()
	f.store(t, "a", "twice recorded observation", now)
	f.store(t, "b", "twice recorded observation", now.Add(time.Minute))

	opts := DefaultOptions()
	opts.Threshold = 0.99
	resp, err := f.engine.Retrieve(context.Background(), "twice recorded observation", opts)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, r := range resp.Results {
		ids[r.Record.ID] = true
	}
	assert.True(t, ids["a"])
	assert.True(t, ids["b"])
}

func TestHistoryFeedsContextualStrategy(t *testing.T) {
	f := newFixture(t, nil)
	f.store(t, "mem_1", "contextual thread target", time.Now())

	_, err := f.engine.Retrieve(context.Background(), "contextual thread target", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, f.engine.History().Len())

	opts := DefaultOptions()
	opts.Threshold = 0.1
	opts.DisableExactSearch = true
	resp, err := f.engine.Retrieve(context.Background(), "thread target", opts)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 10; i++ {
		h.Add(HistoryEntry{Query: "q"})
	}
	assert.Equal(t, 3, h.Len())
	assert.Len(t, h.Recent(5), 3)
}

func TestExtractTerms(t *testing.T) {
	terms := ExtractTerms("The quantum algorithm for AI")
	assert.Equal(t, []string{"quantum", "algorithm"}, terms)
	assert.NotContains(t, terms, "the") // stop word
	assert.NotContains(t, terms, "ai")  // two characters, below the floor
}

func TestEnhanceExpandsOnlyKnownTerms(t *testing.T) {
	e := Enhance("quantum sailing", StaticSynonyms{})
	assert.Equal(t, "quantum sailing", e.Original)
	assert.Contains(t, e.Synonyms, "qubit")
	assert.Contains(t, e.Contextual, "superposition")
	assert.Contains(t, e.Expanded, "quantum sailing")
}

func TestInsightsShape(t *testing.T) {
	f := newFixture(t, nil)
	f.store(t, "mem_1", "insight generation target", time.Now())

	resp, err := f.engine.Retrieve(context.Background(), "insight generation target", DefaultOptions())
	require.NoError(t, err)

	in := resp.Insights
	assert.Equal(t, 3, in.QueryAnalysis.ConceptCount)
	assert.Equal(t, len(resp.Results), in.ResultAnalysis.TotalResults)
	assert.NotEmpty(t, in.Recommendations)
	if len(resp.Results) > 0 {
		assert.Equal(t, len(resp.Results), in.ResultAnalysis.TemporalDistribution["today"])
	}
}

func TestEmbeddingCache(t *testing.T) {
	cache, err := NewEmbeddingCache(embed.NewHashEmbedder(32))
	require.NoError(t, err)
	defer cache.Close()

	a, err := cache.Embed(context.Background(), "repeatable query")
	require.NoError(t, err)
	cache.cache.Wait()
	b, err := cache.Embed(context.Background(), "repeatable query")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
