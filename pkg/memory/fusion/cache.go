package fusion

import (
	"context"

	"github.com/dgraph-io/ristretto"

	"github.com/mindvault/memoria/pkg/memory/embed"
)

// EmbeddingCache memoizes query embeddings in front of a provider. Query
// text maps to one vector, so cached entries never go stale.
type EmbeddingCache struct {
	inner embed.Embedder
	cache *ristretto.Cache
}

func NewEmbeddingCache(inner embed.Embedder) (*EmbeddingCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     16 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &EmbeddingCache{inner: inner, cache: c}, nil
}

func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, int64(4*len(vec)))
	return vec, nil
}

func (c *EmbeddingCache) Close() {
	c.cache.Close()
}
