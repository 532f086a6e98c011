package hybrid

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

const (
	// keywordBoostFactor is applied to a candidate's similarity score
	// when the query appears verbatim in one of its string payload
	// fields. Boosted scores are capped at 1.0.
	keywordBoostFactor = 1.2

	// perCollectionTimeout bounds each collection search so one slow
	// backend cannot stall the whole fan-out.
	perCollectionTimeout = 10 * time.Second
)

// Engine performs hybrid search: one query embedding, a parallel
// fan-out across collections, lexical boosting, and rank fusion.
type Engine struct {
	vectors  vectorstore.Store
	embedder embeddings.Provider
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewEngine creates a hybrid search engine.
func NewEngine(vectors vectorstore.Store, embedder embeddings.Provider, logger *zap.Logger) (*Engine, error) {
	if vectors == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		vectors:  vectors,
		embedder: embedder,
		logger:   logger,
		tracer:   otel.Tracer("recalld.hybrid"),
	}, nil
}

// Search runs the full hybrid pipeline for query.
//
// The only fatal failure after validation is the query embedding:
// without a vector there is nothing to search with. Individual
// collection failures degrade to empty result lists and are reported
// in Response.Degraded.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	ctx, span := e.tracer.Start(ctx, "hybrid.Search",
		trace.WithAttributes(
			attribute.Int("topk", opts.TopK),
			attribute.StringSlice("collections", opts.Collections),
			attribute.String("fusion", string(opts.Fusion)),
		))
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	hits, degraded := e.fanOut(ctx, vector, opts)

	if !opts.DisableKeywordBoost {
		needle := strings.ToLower(query)
		for i := range hits {
			boostByKeyword(hits[i].points, needle)
		}
	}

	results := fuse(hits, opts)

	span.SetAttributes(
		attribute.Int("results", len(results)),
		attribute.Int("degraded", len(degraded)),
	)
	return &Response{Results: results, Degraded: degraded}, nil
}

// fanOut searches every collection concurrently. Failed collections
// yield empty hit lists and are named in the degraded slice; the
// returned hits preserve the caller's collection order so payload
// precedence stays deterministic.
func (e *Engine) fanOut(ctx context.Context, vector []float32, opts Options) ([]collectionHits, []string) {
	limit := fetchK(opts.TopK)
	hits := make([]collectionHits, len(opts.Collections))
	errs := make([]error, len(opts.Collections))

	var wg sync.WaitGroup
	for i, collection := range opts.Collections {
		wg.Add(1)
		go func(i int, collection string) {
			defer wg.Done()

			cctx, cancel := context.WithTimeout(ctx, perCollectionTimeout)
			defer cancel()

			var points []vectorstore.ScoredPoint
			var err error
			if opts.ProjectID != "" {
				points, err = e.vectors.SearchFiltered(cctx, collection, vector, limit, opts.ProjectID)
			} else {
				points, err = e.vectors.Search(cctx, collection, vector, limit)
			}

			hits[i] = collectionHits{collection: collection, points: points}
			errs[i] = err
		}(i, collection)
	}
	wg.Wait()

	var degraded []string
	for i, err := range errs {
		if err != nil {
			e.logger.Warn("collection search degraded to empty",
				zap.String("collection", opts.Collections[i]),
				zap.Error(err))
			hits[i].points = nil
			degraded = append(degraded, opts.Collections[i])
		}
	}
	return hits, degraded
}

// boostByKeyword multiplies the score of every point whose string
// payload fields contain the lowercased query, capping at 1.0, then
// re-sorts the list. It reorders candidates only - no point is added
// or removed on lexical evidence alone.
func boostByKeyword(points []vectorstore.ScoredPoint, needle string) {
	if needle == "" || len(points) == 0 {
		return
	}
	for i := range points {
		if matchesKeyword(points[i].Payload, needle) {
			boosted := points[i].Score * keywordBoostFactor
			if boosted > 1.0 {
				boosted = 1.0
			}
			points[i].Score = boosted
		}
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Score > points[j].Score
	})
}

func matchesKeyword(payload vectorstore.Payload, needle string) bool {
	for _, field := range payload.StringFields() {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
