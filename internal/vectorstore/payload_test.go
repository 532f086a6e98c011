package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayload_Scalars(t *testing.T) {
	p, err := NewPayload(map[string]any{
		"title":      "fixed the retry loop",
		"attempts":   3,
		"confidence": 0.8,
		"resolved":   true,
	})
	require.NoError(t, err)

	assert.Equal(t, "fixed the retry loop", p.GetString("title"))
	assert.Equal(t, KindInteger, p["attempts"].Kind)
	assert.Equal(t, int64(3), p["attempts"].Int)
	assert.InDelta(t, 0.8, p.GetFloat("confidence"), 1e-9)
	assert.Equal(t, KindBool, p["resolved"].Kind)
	assert.True(t, p["resolved"].Bool)
}

func TestNewPayload_StringSliceFlattened(t *testing.T) {
	p, err := NewPayload(map[string]any{
		"facts": []string{"uses sqlite", "single writer", "decays nightly"},
	})
	require.NoError(t, err)
	assert.Equal(t, "uses sqlite, single writer, decays nightly", p.GetString("facts"))
}

func TestNewPayload_RejectsNonScalar(t *testing.T) {
	_, err := NewPayload(map[string]any{
		"nested": map[string]any{"a": 1},
	})
	assert.Error(t, err)

	_, err = NewPayload(map[string]any{
		"numbers": []int{1, 2, 3},
	})
	assert.Error(t, err)
}

func TestStringFields_SortedAndStringOnly(t *testing.T) {
	p, err := NewPayload(map[string]any{
		"zebra":      "last",
		"alpha":      "first",
		"confidence": 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "last"}, p.StringFields())
}

func TestPayload_MapRoundTrip(t *testing.T) {
	p, err := NewPayload(map[string]any{
		"id":         "obs-1",
		"confidence": 0.75,
		"count":      int64(7),
		"flag":       false,
	})
	require.NoError(t, err)

	m := p.Map()
	assert.Equal(t, "obs-1", m["id"])
	assert.Equal(t, 0.75, m["confidence"])
	assert.Equal(t, int64(7), m["count"])
	assert.Equal(t, false, m["flag"])
}
