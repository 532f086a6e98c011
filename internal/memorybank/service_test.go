package memorybank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/record"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

type fixture struct {
	service  *Service
	records  *record.Store
	vectors  *vectorstore.ChromemStore
	embedder *embeddings.HashProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	records, err := record.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = records.Close() })

	vectors, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{})
	require.NoError(t, err)

	embedder := embeddings.NewHashProvider(64)

	service, err := NewService(records, vectors, embedder, zap.NewNop())
	require.NoError(t, err)

	return &fixture{service: service, records: records, vectors: vectors, embedder: embedder}
}

func TestAddMemory_PersistsAndIndexes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.service.AddMemory(ctx, "proj", "always run the linter before pushing", record.MemoryTypePreference, "workflow")
	require.NoError(t, err)
	require.NotEmpty(t, result.ID)
	assert.Equal(t, 64, result.EmbeddingDim)

	entry, err := f.records.GetMemory(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, "always run the linter before pushing", entry.Content)
	assert.Equal(t, 1.0, entry.Confidence)
	assert.Equal(t, "emb_"+result.ID, entry.EmbeddingID)

	count, err := f.vectors.Count(ctx, CollectionMemories)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestAddMemory_SearchFindsIt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.service.AddMemory(ctx, "proj", "the staging cluster lives in eu-west-1", record.MemoryTypeFact, "")
	require.NoError(t, err)
	_, err = f.service.AddMemory(ctx, "proj", "tabs are preferred over spaces", record.MemoryTypePreference, "")
	require.NoError(t, err)

	query, err := f.embedder.EmbedQuery(ctx, "where is the staging cluster")
	require.NoError(t, err)

	points, err := f.vectors.Search(ctx, CollectionMemories, query, 2)
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.Equal(t, result.ID, points[0].ID)
}

func TestAddMemory_ValidationBeforeIO(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.AddMemory(ctx, "proj", "content", record.MemoryType("opinion"), "")
	assert.ErrorIs(t, err, ErrInvalidMemoryType)

	_, err = f.service.AddMemory(ctx, "", "content", record.MemoryTypeFact, "")
	assert.ErrorIs(t, err, ErrEmptyProjectID)

	_, err = f.service.AddMemory(ctx, "proj", "", record.MemoryTypeFact, "")
	assert.ErrorIs(t, err, ErrEmptyContent)

	// Nothing was persisted by the rejected calls.
	memories, observations, err := f.records.Counts(ctx, "proj")
	require.NoError(t, err)
	assert.Zero(t, memories)
	assert.Zero(t, observations)
}

func TestAddObservation_PersistsAndIndexes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.service.AddObservation(ctx, ObservationParams{
		ProjectID:  "proj",
		SessionID:  "sess-1",
		Type:       record.ObservationTypeBugfix,
		Title:      "fixed the off-by-one in pagination",
		Narrative:  "page tokens were advanced before the fetch",
		Facts:      []string{"token advanced early", "last page dropped"},
		Concepts:   []string{"pagination"},
		Confidence: 0.9,
	})
	require.NoError(t, err)

	obs, err := f.records.GetObservation(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.9, obs.Confidence)
	assert.Equal(t, []string{"token advanced early", "last page dropped"}, obs.Facts)

	count, err := f.vectors.Count(ctx, CollectionObservations)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestAddObservation_ValidationBeforeIO(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []struct {
		name    string
		params  ObservationParams
		wantErr error
	}{
		{
			name:    "bad type",
			params:  ObservationParams{ProjectID: "p", Title: "t", Type: record.ObservationType("musing"), Confidence: 1},
			wantErr: ErrInvalidObservationType,
		},
		{
			name:    "empty project",
			params:  ObservationParams{Title: "t", Type: record.ObservationTypeInsight, Confidence: 1},
			wantErr: ErrEmptyProjectID,
		},
		{
			name:    "empty title",
			params:  ObservationParams{ProjectID: "p", Type: record.ObservationTypeInsight, Confidence: 1},
			wantErr: ErrEmptyTitle,
		},
		{
			name:    "confidence out of range",
			params:  ObservationParams{ProjectID: "p", Title: "t", Type: record.ObservationTypeInsight, Confidence: 1.5},
			wantErr: ErrInvalidConfidence,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.AddObservation(ctx, tc.params)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestComposeObservationText(t *testing.T) {
	full := composeObservationText(ObservationParams{
		Title:     "fixed the retry loop",
		Narrative: "backoff was never applied",
		Facts:     []string{"cap at 30s", "jitter added"},
	})
	assert.Equal(t, "fixed the retry loop. backoff was never applied. cap at 30s, jitter added", full)

	titleOnly := composeObservationText(ObservationParams{Title: "just a headline"})
	assert.Equal(t, "just a headline", titleOnly)

	noNarrative := composeObservationText(ObservationParams{
		Title: "headline",
		Facts: []string{"one fact"},
	})
	assert.Equal(t, "headline. one fact", noNarrative)
}
