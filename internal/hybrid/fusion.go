package hybrid

import (
	"sort"

	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

// collectionHits is one collection's candidate list, already boosted,
// in descending score / ascending rank order.
type collectionHits struct {
	collection string
	points     []vectorstore.ScoredPoint
}

// fuse merges per-collection rankings into one list. Entities are
// grouped by ScoredPoint.ID; the payload kept for each entity comes
// from the earliest collection in the caller's argument order that
// returned it.
func fuse(hits []collectionHits, opts Options) []Result {
	type entity struct {
		result   Result
		score    float64
		sources  int
		bestRank int // tiebreak: earliest best rank wins
	}

	entities := make(map[string]*entity)
	order := make([]string, 0)

	for _, ch := range hits {
		for rank, pt := range ch.points {
			e, ok := entities[pt.ID]
			if !ok {
				e = &entity{
					result: Result{
						ID:         pt.ID,
						Collection: ch.collection,
						Payload:    pt.Payload,
					},
					bestRank: rank,
				}
				entities[pt.ID] = e
				order = append(order, pt.ID)
			}
			if rank < e.bestRank {
				e.bestRank = rank
			}

			switch opts.Fusion {
			case FusionScoreAverage:
				e.score += float64(pt.Score)
			default:
				e.score += 1.0 / float64(opts.RRFK+rank+1)
			}
			e.sources++
		}
	}

	results := make([]Result, 0, len(entities))
	for _, id := range order {
		e := entities[id]
		if opts.Fusion == FusionScoreAverage {
			e.result.Score = e.score / float64(e.sources)
		} else {
			e.result.Score = e.score
		}
		results = append(results, e.result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return entities[results[i].ID].bestRank < entities[results[j].ID].bestRank
	})

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results
}
