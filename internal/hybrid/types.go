// Package hybrid implements multi-collection semantic search with
// keyword boosting and rank fusion.
//
// A query is embedded once, fanned out across collections, boosted by
// lexical overlap, and fused into a single ranking. Collections that
// fail contribute nothing instead of failing the whole search.
package hybrid

import (
	"errors"

	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

// Fusion selects the algorithm used to merge per-collection rankings.
type Fusion string

const (
	// FusionRRF merges by reciprocal rank: 1/(k+rank) summed across
	// collections. Robust to incomparable score scales.
	FusionRRF Fusion = "rrf"

	// FusionScoreAverage merges by averaging raw similarity scores
	// across the collections each entity appears in.
	FusionScoreAverage Fusion = "score_average"
)

// DefaultRRFK is the rank-smoothing constant used by FusionRRF.
const DefaultRRFK = 60

// Common errors for hybrid search.
var (
	ErrEmptyQuery      = errors.New("query cannot be empty")
	ErrEmbeddingFailed = errors.New("query embedding failed")
	ErrUnknownFusion   = errors.New("unknown fusion algorithm")
	ErrInvalidTopK     = errors.New("topK must be positive")
)

// Options configures a single search call.
type Options struct {
	// TopK is the number of fused results to return. Required.
	TopK int

	// Collections are searched in order; when the same entity appears
	// in several, the payload from the earliest listed collection wins.
	// An empty list yields an empty result set without error.
	Collections []string

	// ProjectID, when set, restricts every collection search to points
	// whose project_id payload field matches exactly.
	ProjectID string

	// Fusion selects the merge algorithm. Empty means FusionRRF.
	Fusion Fusion

	// RRFK overrides the rank-smoothing constant for FusionRRF.
	// Zero means DefaultRRFK.
	RRFK int

	// DisableKeywordBoost turns off lexical boosting, leaving pure
	// vector similarity ordering per collection.
	DisableKeywordBoost bool
}

func (o *Options) applyDefaults() {
	if o.Fusion == "" {
		o.Fusion = FusionRRF
	}
	if o.RRFK <= 0 {
		o.RRFK = DefaultRRFK
	}
}

func (o *Options) validate() error {
	if o.TopK <= 0 {
		return ErrInvalidTopK
	}
	switch o.Fusion {
	case FusionRRF, FusionScoreAverage:
	default:
		return ErrUnknownFusion
	}
	return nil
}

// Result is one fused search hit. Collection names the source whose
// payload was kept; Score is the fused score, not a raw similarity.
type Result struct {
	ID         string              `json:"id"`
	Score      float64             `json:"score"`
	Collection string              `json:"collection"`
	Payload    vectorstore.Payload `json:"payload"`
}

// Response carries the fused results plus the names of collections
// that failed and were treated as empty.
type Response struct {
	Results  []Result `json:"results"`
	Degraded []string `json:"degraded,omitempty"`
}

// fetchK is the per-collection candidate depth: wide enough that
// boosting and fusion have material to reorder, floored at 20.
func fetchK(topK int) int {
	k := topK * 3
	if k < 20 {
		k = 20
	}
	return k
}
