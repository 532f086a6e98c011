package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// HashProvider derives embeddings from token hashes instead of a model.
//
// Each whitespace token is hashed and scattered into a fixed number of
// dimensions; the vector is then L2-normalized. Texts sharing tokens get
// correlated vectors, so nearest-neighbour search behaves sensibly on
// overlapping phrases, and the output is fully deterministic. That makes
// it useful for development without a model server and for reproducible
// tests; it has no semantic understanding whatsoever.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a hash-based provider of the given dimension.
func NewHashProvider(dimension int) *HashProvider {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashProvider{dimension: dimension}
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *HashProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.embed(text)
	}
	return out, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *HashProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	return p.embed(text), nil
}

// Dimension returns the embedding dimension.
func (p *HashProvider) Dimension() int {
	return p.dimension
}

// Close releases resources (none held).
func (p *HashProvider) Close() error {
	return nil
}

func (p *HashProvider) embed(text string) []float32 {
	vec := make([]float32, p.dimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(token))
		// Scatter the token into four dimensions with signed weights.
		for i := 0; i < 4; i++ {
			idx := binary.BigEndian.Uint32(sum[i*8:]) % uint32(p.dimension)
			sign := float32(1)
			if sum[i*8+4]&1 == 1 {
				sign = -1
			}
			vec[idx] += sign
		}
	}

	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq > 0 {
		norm := float32(1 / math.Sqrt(sumSq))
		for i := range vec {
			vec[i] *= norm
		}
	}
	return vec
}

// Ensure HashProvider implements Provider.
var _ Provider = (*HashProvider)(nil)
