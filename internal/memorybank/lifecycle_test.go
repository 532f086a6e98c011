package memorybank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/record"
)

func newLifecycleFixture(t *testing.T) (*Lifecycle, *fixture) {
	t.Helper()
	f := newFixture(t)
	lifecycle, err := NewLifecycle(f.records, f.vectors, zap.NewNop())
	require.NoError(t, err)
	return lifecycle, f
}

func addObservation(t *testing.T, f *fixture, title string, confidence float64) string {
	t.Helper()
	result, err := f.service.AddObservation(context.Background(), ObservationParams{
		ProjectID:  "proj",
		Type:       record.ObservationTypeDiscovery,
		Title:      title,
		Confidence: confidence,
	})
	require.NoError(t, err)
	return result.ID
}

func TestBoost_RaisesConfidence(t *testing.T) {
	ctx := context.Background()
	lifecycle, f := newLifecycleFixture(t)
	id := addObservation(t, f, "boost target", 0.5)

	confidence, err := lifecycle.Boost(ctx, id, 0.2)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, confidence, 1e-9)

	obs, err := f.records.GetObservation(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, obs.Confidence, 1e-9)
}

func TestBoost_CappedAtOne(t *testing.T) {
	ctx := context.Background()
	lifecycle, f := newLifecycleFixture(t)
	id := addObservation(t, f, "near the cap", 0.95)

	confidence, err := lifecycle.Boost(ctx, id, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, confidence)
}

func TestBoost_RejectsNegativeAmount(t *testing.T) {
	lifecycle, f := newLifecycleFixture(t)
	id := addObservation(t, f, "target", 0.5)

	_, err := lifecycle.Boost(context.Background(), id, -0.1)
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestBoost_UnknownID(t *testing.T) {
	lifecycle, _ := newLifecycleFixture(t)
	_, err := lifecycle.Boost(context.Background(), "missing", 0.1)
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestDecay_MultipliesExactly(t *testing.T) {
	ctx := context.Background()
	lifecycle, f := newLifecycleFixture(t)
	id := addObservation(t, f, "aging record", 0.8)

	rows, err := lifecycle.Decay(ctx, "proj", 0.5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	obs, err := f.records.GetObservation(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, obs.Confidence, 1e-9)
}

func TestDecay_ValidatesFactor(t *testing.T) {
	lifecycle, _ := newLifecycleFixture(t)

	_, err := lifecycle.Decay(context.Background(), "proj", 1.5)
	assert.ErrorIs(t, err, ErrInvalidConfidence)

	_, err = lifecycle.Decay(context.Background(), "", 0.5)
	assert.ErrorIs(t, err, ErrEmptyProjectID)
}

func TestCompact_RemovesBelowThreshold(t *testing.T) {
	ctx := context.Background()
	lifecycle, f := newLifecycleFixture(t)

	lowID := addObservation(t, f, "stale detail", 0.1)
	highID := addObservation(t, f, "still trusted", 0.9)

	outcomes, err := lifecycle.Compact(ctx, "proj", 0.3, 0)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, lowID, outcomes[0].ID)
	assert.Equal(t, "observation", outcomes[0].Kind)
	assert.True(t, outcomes[0].Removed)
	assert.True(t, outcomes[0].VectorDeleted)

	_, err = f.records.GetObservation(ctx, lowID)
	assert.ErrorIs(t, err, record.ErrNotFound)
	_, err = f.records.GetObservation(ctx, highID)
	assert.NoError(t, err)

	// Vector twin is gone; the survivor's remains.
	count, err := f.vectors.Count(ctx, CollectionObservations)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestCompact_KeepTopBoundsRemoval(t *testing.T) {
	ctx := context.Background()
	lifecycle, f := newLifecycleFixture(t)

	lowest := addObservation(t, f, "confidence lowest", 0.05)
	addObservation(t, f, "confidence low", 0.1)
	addObservation(t, f, "confidence mid", 0.2)

	outcomes, err := lifecycle.Compact(ctx, "proj", 0.3, 1)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, lowest, outcomes[0].ID)

	_, observations, err := f.records.Counts(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, int64(2), observations)
}

func TestCompact_SweepsMemoriesToo(t *testing.T) {
	ctx := context.Background()
	lifecycle, f := newLifecycleFixture(t)

	// Memories are written at confidence 1.0; decay one below threshold
	// directly to simulate an aged row.
	result, err := f.service.AddMemory(ctx, "proj", "superseded detail", record.MemoryTypeFact, "")
	require.NoError(t, err)
	require.NoError(t, f.records.UpdateMemoryConfidence(ctx, result.ID, 0.1))

	outcomes, err := lifecycle.Compact(ctx, "proj", 0.3, 0)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "memory", outcomes[0].Kind)
	assert.Equal(t, result.ID, outcomes[0].ID)

	_, err = f.records.GetMemory(ctx, result.ID)
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestCompact_ValidatesInput(t *testing.T) {
	lifecycle, _ := newLifecycleFixture(t)

	_, err := lifecycle.Compact(context.Background(), "", 0.3, 0)
	assert.ErrorIs(t, err, ErrEmptyProjectID)

	_, err = lifecycle.Compact(context.Background(), "proj", 1.5, 0)
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}
