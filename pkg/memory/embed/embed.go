package embed

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"

	"github.com/mindvault/memoria/pkg/memory/model"
)

// Embedder converts text into a fixed-length vector. Implementations must be
// deterministic for identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrNotSupported is returned by providers that cannot embed the given input.
var ErrNotSupported = errors.New("embed: not supported")

// HashEmbedder is a deterministic, dependency-free provider: every token
// seeds a pseudo-random contribution to the vector, which is then L2
// normalized. Good enough for tests, offline runs, and as a fallback when a
// real provider is unreachable.
type HashEmbedder struct {
	Dim int
}

// NewHashEmbedder returns a hash-based embedder with the given dimension.
func NewHashEmbedder(dim int) HashEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return HashEmbedder{Dim: dim}
}

func (h HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	normalized := model.NormalizeContent(text)
	if normalized == "" {
		return nil, ErrNotSupported
	}
	dim := h.Dim
	if dim <= 0 {
		dim = 384
	}
	words := strings.Fields(normalized)
	vec := make([]float64, dim)
	weight := 1 / float64(len(words))
	for _, word := range words {
		hash := fnv.New64a()
		hash.Write([]byte(word))
		seed := hash.Sum64()
		for i := 0; i < dim; i++ {
			component := float64(seed*uint64(i+1)%1000) / 1000
			vec[i] += component * weight
		}
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil, ErrNotSupported
	}
	out := make([]float32, dim)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}
