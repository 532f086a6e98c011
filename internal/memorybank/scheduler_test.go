package memorybank

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecayScheduler_StartStop(t *testing.T) {
	lifecycle, _ := newLifecycleFixture(t)
	scheduler, err := NewDecayScheduler(lifecycle, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, scheduler.Start())
	assert.Error(t, scheduler.Start(), "second start must fail")

	require.NoError(t, scheduler.Stop())
	assert.NoError(t, scheduler.Stop(), "stop is idempotent")

	// A stopped scheduler can be restarted.
	require.NoError(t, scheduler.Start())
	require.NoError(t, scheduler.Stop())
}

func TestDecayScheduler_RejectsBadFactor(t *testing.T) {
	lifecycle, _ := newLifecycleFixture(t)
	_, err := NewDecayScheduler(lifecycle, zap.NewNop(), WithDecayFactor(1.5))
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestDecayScheduler_RunsDecayOnTick(t *testing.T) {
	lifecycle, f := newLifecycleFixture(t)
	id := addObservation(t, f, "ages on schedule", 0.8)

	scheduler, err := NewDecayScheduler(lifecycle, zap.NewNop(),
		WithInterval(10*time.Millisecond),
		WithDecayFactor(0.5),
		WithProjectIDs([]string{"proj"}),
	)
	require.NoError(t, err)
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop() //nolint:errcheck

	assert.Eventually(t, func() bool {
		obs, err := f.records.GetObservation(context.Background(), id)
		if err != nil {
			return false
		}
		return obs.Confidence < 0.8
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDecayScheduler_RequiresLifecycle(t *testing.T) {
	_, err := NewDecayScheduler(nil, zap.NewNop())
	assert.Error(t, err)

	lifecycle, _ := newLifecycleFixture(t)
	_, err = NewDecayScheduler(lifecycle, nil)
	assert.Error(t, err)
}
