package memorybank

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

// Lifecycle manages the confidence-weighted aging of stored records:
// boost on access, periodic decay, and compaction of low-confidence
// rows together with their vector twins.
type Lifecycle struct {
	records RecordStore
	vectors vectorstore.Store
	logger  *zap.Logger
}

// NewLifecycle creates a confidence lifecycle manager.
func NewLifecycle(records RecordStore, vectors vectorstore.Store, logger *zap.Logger) (*Lifecycle, error) {
	if records == nil {
		return nil, fmt.Errorf("record store cannot be nil")
	}
	if vectors == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{records: records, vectors: vectors, logger: logger}, nil
}

// Boost raises an observation's confidence by amount, capped at 1.0.
// Callers invoke this when an observation's full detail is fetched:
// repeated access raises trust. Returns the new confidence.
func (l *Lifecycle) Boost(ctx context.Context, id string, amount float64) (float64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: boost amount %v", ErrInvalidConfidence, amount)
	}

	obs, err := l.records.GetObservation(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("fetching observation: %w", err)
	}

	confidence := obs.Confidence + amount
	if confidence > 1.0 {
		confidence = 1.0
	}
	if err := l.records.UpdateObservationConfidence(ctx, id, confidence); err != nil {
		return 0, fmt.Errorf("updating confidence: %w", err)
	}

	l.logger.Debug("confidence boosted",
		zap.String("id", id),
		zap.Float64("prior", obs.Confidence),
		zap.Float64("confidence", confidence))
	return confidence, nil
}

// Decay multiplies every observation confidence in a project by factor.
// Intended as a periodic aging pass, not a per-record operation.
// Returns the number of rows touched.
func (l *Lifecycle) Decay(ctx context.Context, projectID string, factor float64) (int64, error) {
	if projectID == "" {
		return 0, ErrEmptyProjectID
	}
	if factor < 0 || factor > 1 {
		return 0, fmt.Errorf("%w: decay factor %v", ErrInvalidConfidence, factor)
	}

	n, err := l.records.DecayObservations(ctx, projectID, factor)
	if err != nil {
		return 0, fmt.Errorf("decaying project %s: %w", projectID, err)
	}

	l.logger.Info("confidence decayed",
		zap.String("project_id", projectID),
		zap.Float64("factor", factor),
		zap.Int64("rows", n))
	return n, nil
}

// CompactionOutcome reports the fate of one record in a compaction pass.
// Vector deletion is best-effort: a failed twin deletion leaves an
// orphaned vector for a later re-sync and is reported here rather than
// aborting the pass.
type CompactionOutcome struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"` // "memory" or "observation"
	Confidence    float64 `json:"confidence"`
	Removed       bool    `json:"removed"`
	VectorDeleted bool    `json:"vector_deleted"`
	Error         string  `json:"error,omitempty"`
}

// Compact removes records with confidence below minConfidence from both
// the structured store and the vector store.
//
// keepTop, when positive, bounds how many of the lowest-confidence
// qualifying rows are removed in this pass - a cost-bounded maintenance
// sweep, not a guarantee that every sub-threshold row goes in one call.
// The structured store is authoritative for existence, so the row is
// deleted first and the vector twin second.
func (l *Lifecycle) Compact(ctx context.Context, projectID string, minConfidence float64, keepTop int) ([]CompactionOutcome, error) {
	if projectID == "" {
		return nil, ErrEmptyProjectID
	}
	if minConfidence < 0 || minConfidence > 1 {
		return nil, fmt.Errorf("%w: threshold %v", ErrInvalidConfidence, minConfidence)
	}

	var outcomes []CompactionOutcome
	budget := keepTop // <=0 means unbounded

	observations, err := l.records.ListObservationsBelow(ctx, projectID, minConfidence, budget)
	if err != nil {
		return nil, fmt.Errorf("listing observations for compaction: %w", err)
	}
	for _, obs := range observations {
		outcomes = append(outcomes, l.compactOne(ctx, "observation", CollectionObservations, obs.ID, obs.Confidence))
	}
	if keepTop > 0 {
		budget = keepTop - len(observations)
		if budget <= 0 {
			return outcomes, nil
		}
	}

	memories, err := l.records.ListMemoriesBelow(ctx, projectID, minConfidence, budget)
	if err != nil {
		return outcomes, fmt.Errorf("listing memories for compaction: %w", err)
	}
	for _, mem := range memories {
		outcomes = append(outcomes, l.compactOne(ctx, "memory", CollectionMemories, mem.ID, mem.Confidence))
	}

	l.logger.Info("compaction pass finished",
		zap.String("project_id", projectID),
		zap.Float64("min_confidence", minConfidence),
		zap.Int("removed", len(outcomes)))
	return outcomes, nil
}

func (l *Lifecycle) compactOne(ctx context.Context, kind, collection, id string, confidence float64) CompactionOutcome {
	outcome := CompactionOutcome{ID: id, Kind: kind, Confidence: confidence}

	var err error
	switch kind {
	case "memory":
		err = l.records.DeleteMemory(ctx, id)
	default:
		err = l.records.DeleteObservation(ctx, id)
	}
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Removed = true

	if err := l.vectors.Delete(ctx, collection, id); err != nil {
		// The structured row is gone; the orphaned vector is caught by a
		// later re-sync, not retried here.
		l.logger.Warn("vector twin deletion failed during compaction",
			zap.String("id", id),
			zap.String("collection", collection),
			zap.Error(err))
		outcome.Error = err.Error()
		return outcome
	}
	outcome.VectorDeleted = true
	return outcome
}
