package vectorstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("mem_some-record-identifier")
	b := PointID("mem_some-record-identifier")
	assert.Equal(t, a, b)
}

func TestPointID_UUIDPassthrough(t *testing.T) {
	// A valid UUID maps to its own canonical form, so callers using
	// real UUIDs get identical point ids in the vector store.
	id := "550E8400-E29B-41D4-A716-446655440000"
	got := PointID(id)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", got)
}

func TestPointID_RFC4122Bits(t *testing.T) {
	for _, id := range []string{"a", "short", "exactly-sixteen!", "a much longer identifier that folds over the sixteen byte boundary"} {
		parsed, err := uuid.Parse(PointID(id))
		require.NoError(t, err, "id %q", id)
		assert.Equal(t, uuid.Version(4), parsed.Version(), "id %q", id)
		assert.Equal(t, uuid.RFC4122, parsed.Variant(), "id %q", id)
	}
}

func TestPointID_DistinctInputs(t *testing.T) {
	assert.NotEqual(t, PointID("record-1"), PointID("record-2"))
}

func TestPointID_LongInputFoldsTail(t *testing.T) {
	// Inputs sharing a 16-byte prefix but differing past it must not
	// collide: the tail is folded in, not truncated away.
	prefix := "0123456789abcdef"
	assert.NotEqual(t, PointID(prefix+"-one"), PointID(prefix+"-two"))
}
