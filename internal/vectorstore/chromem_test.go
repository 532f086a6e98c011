package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChromem(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{})
	require.NoError(t, err)
	return store
}

func mustPayload(t *testing.T, m map[string]any) Payload {
	t.Helper()
	p, err := NewPayload(m)
	require.NoError(t, err)
	return p
}

func TestChromemStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)

	require.NoError(t, store.EnsureCollection(ctx, "memories", 3))

	require.NoError(t, store.Upsert(ctx, "memories", "mem-a", []float32{1, 0, 0},
		mustPayload(t, map[string]any{"id": "mem-a", "project_id": "proj", "content": "alpha"})))
	require.NoError(t, store.Upsert(ctx, "memories", "mem-b", []float32{0, 1, 0},
		mustPayload(t, map[string]any{"id": "mem-b", "project_id": "proj", "content": "beta"})))

	points, err := store.Search(ctx, "memories", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "mem-a", points[0].ID)
	assert.Greater(t, points[0].Score, points[1].Score)
	assert.Equal(t, "alpha", points[0].Payload.GetString("content"))
}

func TestChromemStore_SearchFiltered(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)

	require.NoError(t, store.EnsureCollection(ctx, "memories", 3))
	require.NoError(t, store.Upsert(ctx, "memories", "mem-a", []float32{1, 0, 0},
		mustPayload(t, map[string]any{"id": "mem-a", "project_id": "proj-one"})))
	require.NoError(t, store.Upsert(ctx, "memories", "mem-b", []float32{0.9, 0.1, 0},
		mustPayload(t, map[string]any{"id": "mem-b", "project_id": "proj-two"})))

	points, err := store.SearchFiltered(ctx, "memories", []float32{1, 0, 0}, 10, "proj-two")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "mem-b", points[0].ID)
}

func TestChromemStore_SearchEmptyCollection(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)

	require.NoError(t, store.EnsureCollection(ctx, "memories", 3))

	points, err := store.Search(ctx, "memories", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestChromemStore_SearchUnknownCollection(t *testing.T) {
	store := newTestChromem(t)
	_, err := store.Search(context.Background(), "missing", []float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestChromemStore_TopKClampedToCount(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)

	require.NoError(t, store.EnsureCollection(ctx, "memories", 3))
	require.NoError(t, store.Upsert(ctx, "memories", "only", []float32{1, 0, 0},
		mustPayload(t, map[string]any{"id": "only"})))

	points, err := store.Search(ctx, "memories", []float32{1, 0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestChromemStore_DimensionEnforced(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)

	require.NoError(t, store.EnsureCollection(ctx, "memories", 3))

	err := store.Upsert(ctx, "memories", "bad", []float32{1, 0},
		mustPayload(t, map[string]any{"id": "bad"}))
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = store.EnsureCollection(ctx, "memories", 4)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestChromemStore_DeleteAndCount(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)

	require.NoError(t, store.EnsureCollection(ctx, "memories", 3))
	require.NoError(t, store.Upsert(ctx, "memories", "mem-a", []float32{1, 0, 0},
		mustPayload(t, map[string]any{"id": "mem-a"})))

	count, err := store.Count(ctx, "memories")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, store.Delete(ctx, "memories", "mem-a"))

	count, err = store.Count(ctx, "memories")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestChromemStore_InvalidCollectionName(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)

	err := store.EnsureCollection(ctx, "Not Valid!", 3)
	assert.ErrorIs(t, err, ErrInvalidCollectionName)
}
