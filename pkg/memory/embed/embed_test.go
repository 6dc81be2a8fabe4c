package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "quantum computing basics")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "quantum computing basics")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashEmbedderNormalized(t *testing.T) {
	e := NewHashEmbedder(32)
	vec, err := e.Embed(context.Background(), "some text to embed")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashEmbedderEmptyContent(t *testing.T) {
	e := NewHashEmbedder(16)
	_, err := e.Embed(context.Background(), "   \n\t ")
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestHashEmbedderCaseInsensitive(t *testing.T) {
	e := NewHashEmbedder(48)
	ctx := context.Background()
	a, err := e.Embed(ctx, "Machine Learning")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "machine learning")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHashEmbedderDefaultDimension(t *testing.T) {
	e := HashEmbedder{}
	vec, err := e.Embed(context.Background(), "dimension fallback")
	require.NoError(t, err)
	assert.Len(t, vec, 384)
}
