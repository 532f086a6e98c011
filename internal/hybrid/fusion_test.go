package hybrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

func point(id string, score float32, fields map[string]any) vectorstore.ScoredPoint {
	p, err := vectorstore.NewPayload(fields)
	if err != nil {
		panic(err)
	}
	return vectorstore.ScoredPoint{ID: id, Score: score, Payload: p}
}

func TestFuse_RRFRanks(t *testing.T) {
	// B holds rank 1 in the first collection and rank 0 in the second,
	// so its fused score is 1/62 + 1/61 - more than A's single 1/61.
	hits := []collectionHits{
		{collection: "memories", points: []vectorstore.ScoredPoint{
			point("A", 0.9, map[string]any{"id": "A"}),
			point("B", 0.8, map[string]any{"id": "B"}),
		}},
		{collection: "observations", points: []vectorstore.ScoredPoint{
			point("B", 0.7, map[string]any{"id": "B"}),
		}},
	}

	results := fuse(hits, Options{TopK: 10, Fusion: FusionRRF, RRFK: 60})
	require.Len(t, results, 2)
	assert.Equal(t, "B", results[0].ID)
	assert.InDelta(t, 1.0/62+1.0/61, results[0].Score, 1e-12)
	assert.Equal(t, "A", results[1].ID)
	assert.InDelta(t, 1.0/61, results[1].Score, 1e-12)
}

func TestFuse_ScoreAverage(t *testing.T) {
	hits := []collectionHits{
		{collection: "memories", points: []vectorstore.ScoredPoint{
			point("A", 0.9, map[string]any{"id": "A"}),
			point("B", 0.4, map[string]any{"id": "B"}),
		}},
		{collection: "observations", points: []vectorstore.ScoredPoint{
			point("B", 0.8, map[string]any{"id": "B"}),
		}},
	}

	results := fuse(hits, Options{TopK: 10, Fusion: FusionScoreAverage})
	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].ID)
	assert.InDelta(t, 0.9, results[0].Score, 1e-6)
	assert.InDelta(t, 0.6, results[1].Score, 1e-6) // (0.4+0.8)/2
}

func TestFuse_FirstCollectionPayloadWins(t *testing.T) {
	hits := []collectionHits{
		{collection: "memories", points: []vectorstore.ScoredPoint{
			point("X", 0.5, map[string]any{"id": "X", "source": "memories"}),
		}},
		{collection: "observations", points: []vectorstore.ScoredPoint{
			point("X", 0.9, map[string]any{"id": "X", "source": "observations"}),
		}},
	}

	results := fuse(hits, Options{TopK: 10, Fusion: FusionRRF, RRFK: 60})
	require.Len(t, results, 1)
	assert.Equal(t, "memories", results[0].Collection)
	assert.Equal(t, "memories", results[0].Payload.GetString("source"))
}

func TestFuse_TruncatesToTopK(t *testing.T) {
	hits := []collectionHits{
		{collection: "memories", points: []vectorstore.ScoredPoint{
			point("A", 0.9, map[string]any{"id": "A"}),
			point("B", 0.8, map[string]any{"id": "B"}),
			point("C", 0.7, map[string]any{"id": "C"}),
		}},
	}

	results := fuse(hits, Options{TopK: 2, Fusion: FusionRRF, RRFK: 60})
	assert.Len(t, results, 2)
}

func TestFuse_EmptyInput(t *testing.T) {
	results := fuse(nil, Options{TopK: 5, Fusion: FusionRRF, RRFK: 60})
	assert.Empty(t, results)
}

func TestFetchK(t *testing.T) {
	assert.Equal(t, 20, fetchK(1))
	assert.Equal(t, 20, fetchK(6))
	assert.Equal(t, 30, fetchK(10))
	assert.Equal(t, 150, fetchK(50))
}
