package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindvault/memoria/pkg/memory/model"
)

func rec(id string, vec []float32, content string) *model.Record {
	return &model.Record{
		ID:          id,
		Content:     content,
		Embedding:   vec,
		Fingerprint: model.Fingerprint(content),
		CreatedAt:   time.Now(),
	}
}

func TestInsertAndGet(t *testing.T) {
	ix := New(0.8)
	r := rec("mem_1", []float32{1, 0, 0}, "hello world")
	require.NoError(t, ix.Insert(r))

	got, err := ix.Get("mem_1")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	_, err = ix.Get("mem_missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestInsertValidation(t *testing.T) {
	ix := New(0.8)
	err := ix.Insert(&model.Record{ID: "mem_2"})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "embedding", verr.Field)

	err = ix.Insert(&model.Record{Embedding: []float32{1}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "id", verr.Field)
}

func TestExactLookup(t *testing.T) {
	ix := New(0.8)
	r := rec("mem_1", []float32{1, 0}, "The Same Content")
	require.NoError(t, ix.Insert(r))

	// fingerprint is computed over normalized content
	got := ix.ExactLookup(model.Fingerprint("  the same content  "))
	require.Len(t, got, 1)
	assert.Equal(t, "mem_1", got[0].ID)

	assert.Empty(t, ix.ExactLookup("deadbeef"))
}

func TestExactLookupReturnsAllHolders(t *testing.T) {
	ix := New(0.8)
	require.NoError(t, ix.Insert(rec("a", []float32{1, 0}, "duplicated body")))
	require.NoError(t, ix.Insert(rec("b", []float32{0.9, 0.1}, "duplicated body")))

	got := ix.ExactLookup(model.Fingerprint("duplicated body"))
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	// re-inserting an existing id must not duplicate the holder entry
	require.NoError(t, ix.Insert(rec("a", []float32{1, 0}, "duplicated body")))
	assert.Len(t, ix.ExactLookup(model.Fingerprint("duplicated body")), 2)
}

func TestSimilaritySearchThreshold(t *testing.T) {
	ix := New(0.8)
	require.NoError(t, ix.Insert(rec("a", []float32{1, 0, 0}, "a")))
	require.NoError(t, ix.Insert(rec("b", []float32{0.9, 0.1, 0}, "b")))
	require.NoError(t, ix.Insert(rec("c", []float32{0, 0, 1}, "c")))

	matches := ix.SimilaritySearch([]float32{1, 0, 0}, 0.7, 0)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Record.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestGreedyClustering(t *testing.T) {
	ix := New(0.8)
	require.NoError(t, ix.Insert(rec("a", []float32{1, 0}, "a")))
	require.NoError(t, ix.Insert(rec("b", []float32{0.99, 0.01}, "b")))
	require.NoError(t, ix.Insert(rec("c", []float32{0, 1}, "c")))

	clusters := ix.Clusters()
	require.Len(t, clusters, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, clusters[0].Members)
	assert.Equal(t, []string{"c"}, clusters[1].Members)
}

func TestRebuildClusters(t *testing.T) {
	ix := New(0.8)
	require.NoError(t, ix.Insert(rec("a", []float32{1, 0}, "a")))
	require.NoError(t, ix.Insert(rec("b", []float32{0.98, 0.02}, "b")))
	require.NoError(t, ix.Insert(rec("c", []float32{0, 1}, "c")))

	n := ix.RebuildClusters()
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, ix.Stats().Clusters)
}

func TestTouch(t *testing.T) {
	ix := New(0.8)
	r := rec("a", []float32{1}, "a")
	require.NoError(t, ix.Insert(r))

	at := time.Now().Add(time.Hour)
	ix.Touch("a", at)
	got, err := ix.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.AccessCount)
	assert.Equal(t, at, got.LastAccessedAt)
}

func TestAttachEdgesBothHalves(t *testing.T) {
	ix := New(0.8)
	require.NoError(t, ix.Insert(rec("a", []float32{1, 0}, "a")))
	require.NoError(t, ix.Insert(rec("b", []float32{0, 1}, "b")))

	e := model.Edge{Source: "a", Target: "b", Kind: model.RelationSimilar, Strength: 0.9, Bidirectional: true}
	ix.AttachEdges([]model.Edge{e, e.Mirror()})

	a, _ := ix.Get("a")
	b, _ := ix.Get("b")
	require.Len(t, a.Relationships, 1)
	require.Len(t, b.Relationships, 1)
	assert.Equal(t, "b", a.Relationships[0].Target)
	assert.Equal(t, "a", b.Relationships[0].Target)
}

func TestAllInsertionOrder(t *testing.T) {
	ix := New(0.8)
	require.NoError(t, ix.Insert(rec("x", []float32{1}, "x")))
	require.NoError(t, ix.Insert(rec("y", []float32{1}, "y")))
	require.NoError(t, ix.Insert(rec("z", []float32{1}, "z")))

	all := ix.All()
	require.Len(t, all, 3)
	assert.Equal(t, "x", all[0].ID)
	assert.Equal(t, "z", all[2].ID)
	assert.Equal(t, 3, ix.Count())
}
