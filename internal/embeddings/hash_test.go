package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashProvider_Deterministic(t *testing.T) {
	p := NewHashProvider(64)

	a, err := p.EmbedQuery(context.Background(), "retry loop backoff")
	require.NoError(t, err)
	b, err := p.EmbedQuery(context.Background(), "retry loop backoff")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHashProvider_Normalized(t *testing.T) {
	p := NewHashProvider(64)

	vec, err := p.EmbedQuery(context.Background(), "some text with several tokens")
	require.NoError(t, err)

	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-5)
}

func TestHashProvider_SharedTokensCorrelate(t *testing.T) {
	p := NewHashProvider(128)
	ctx := context.Background()

	query, err := p.EmbedQuery(ctx, "database connection pool")
	require.NoError(t, err)
	near, err := p.EmbedQuery(ctx, "database connection pool sizing")
	require.NoError(t, err)
	far, err := p.EmbedQuery(ctx, "completely unrelated words here")
	require.NoError(t, err)

	assert.Greater(t, dot(query, near), dot(query, far))
}

func TestHashProvider_EmptyInput(t *testing.T) {
	p := NewHashProvider(64)

	_, err := p.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = p.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestHashProvider_DefaultDimension(t *testing.T) {
	assert.Equal(t, 384, NewHashProvider(0).Dimension())
	assert.Equal(t, 16, NewHashProvider(16).Dimension())
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
