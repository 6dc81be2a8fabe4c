package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilaritySelf(t *testing.T) {
	v := []float32{0.2, -0.4, 0.8, 0.1}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-3, 0.5, 7}
	assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
}

func TestCosineSimilarityZeroMagnitude(t *testing.T) {
	zero := []float32{0, 0, 0}
	v := []float32{1, 2, 3}
	assert.Zero(t, CosineSimilarity(zero, v))
	assert.Zero(t, CosineSimilarity(v, nil))
}

func TestMeanVector(t *testing.T) {
	mean := MeanVector([][]float32{{1, 3}, {3, 5}})
	require.Len(t, mean, 2)
	assert.InDelta(t, 2, mean[0], 1e-6)
	assert.InDelta(t, 4, mean[1], 1e-6)

	assert.Nil(t, MeanVector(nil))
	// mismatched dimensions are skipped, not averaged
	mean = MeanVector([][]float32{{2, 2}, {1, 1, 1}})
	require.Len(t, mean, 2)
	assert.InDelta(t, 2, mean[0], 1e-6)
}

func TestFingerprintNormalizes(t *testing.T) {
	assert.Equal(t, Fingerprint("Hello World"), Fingerprint("  hello world\n"))
	assert.NotEqual(t, Fingerprint("hello world"), Fingerprint("hello worlds"))
	assert.Equal(t, "", NormalizeContent("  \t\n "))
}

func TestEdgeValidate(t *testing.T) {
	edge := Edge{Source: "a", Target: "b", Kind: RelationSimilar, Strength: 0.9}
	require.NoError(t, edge.Validate())

	bad := []Edge{
		{Source: "", Target: "b", Kind: RelationSimilar, Strength: 0.5},
		{Source: "a", Target: "a", Kind: RelationSimilar, Strength: 0.5},
		{Source: "a", Target: "b", Kind: "bogus", Strength: 0.5},
		{Source: "a", Target: "b", Kind: RelationSimilar, Strength: 0},
		{Source: "a", Target: "b", Kind: RelationSimilar, Strength: 1.2},
	}
	for _, e := range bad {
		assert.Error(t, e.Validate())
	}
}

func TestEdgeMirrorSwapsEndpoints(t *testing.T) {
	edge := Edge{Source: "a", Target: "b", Kind: RelationRelated, Strength: 0.73, Bidirectional: true}
	mirror := edge.Mirror()
	assert.Equal(t, "b", mirror.Source)
	assert.Equal(t, "a", mirror.Target)
	assert.Equal(t, edge.Strength, mirror.Strength)
	assert.Equal(t, edge.Kind, mirror.Kind)
}

func TestRelationKindDirections(t *testing.T) {
	assert.True(t, RelationSimilar.Bidirectional())
	assert.True(t, RelationRelated.Bidirectional())
	assert.True(t, RelationTemporalProximity.Bidirectional())
	assert.False(t, RelationFollows.Bidirectional())
	assert.False(t, RelationPrerequisite.Bidirectional())
	assert.False(t, RelationElaborates.Bidirectional())
	assert.False(t, RelationExampleOf.Bidirectional())
}
