// Package memorybank orchestrates semantic memory writes and their
// confidence lifecycle.
//
// Records are created exclusively through the pipelines here (embed,
// persist, index - in that order), confidence is mutated only through
// the Lifecycle, and deletion happens only through Lifecycle.Compact,
// which removes both the structured row and its vector twin.
package memorybank

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/recalld/internal/record"
)

// Fixed collection names used by callers. Opaque strings to the engine:
// they select a vector store namespace, nothing more.
const (
	CollectionMemories      = "memories"
	CollectionObservations  = "observations"
	CollectionDomainObjects = "domain_objects"
	CollectionGlossary      = "glossary_terms"
)

// Common errors for memorybank operations.
var (
	// ErrInvalidMemoryType is returned before any I/O when the memory
	// type is not one of the five known values.
	ErrInvalidMemoryType = errors.New("invalid memory type")

	// ErrInvalidObservationType is returned before any I/O when the
	// observation type is not one of the seven known values.
	ErrInvalidObservationType = errors.New("invalid observation type")

	// ErrInvalidConfidence is returned when a confidence value falls
	// outside [0, 1].
	ErrInvalidConfidence = errors.New("confidence must be between 0.0 and 1.0")

	// ErrVectorUpsert indicates embed and persist both succeeded but the
	// vector write failed. The structured row remains: a row carrying an
	// embedding marker with no vector twin, left for a repair pass.
	ErrVectorUpsert = errors.New("vector upsert failed")

	ErrEmptyProjectID = errors.New("project ID cannot be empty")
	ErrEmptyContent   = errors.New("content cannot be empty")
	ErrEmptyTitle     = errors.New("title cannot be empty")
)

// RecordStore is the structured-record persistence consumed by the
// pipelines and the lifecycle. *record.Store satisfies it; tests
// substitute stubs.
type RecordStore interface {
	CreateMemory(ctx context.Context, m *record.MemoryEntry) error
	GetMemory(ctx context.Context, id string) (*record.MemoryEntry, error)
	ListMemories(ctx context.Context, projectID string, limit int) ([]record.MemoryEntry, error)
	DeleteMemory(ctx context.Context, id string) error

	CreateObservation(ctx context.Context, o *record.Observation) error
	GetObservation(ctx context.Context, id string) (*record.Observation, error)
	ListObservationIndex(ctx context.Context, projectID string, limit int) ([]record.ObservationIndex, error)
	UpdateObservationConfidence(ctx context.Context, id string, confidence float64) error
	DecayObservations(ctx context.Context, projectID string, factor float64) (int64, error)
	DeleteObservation(ctx context.Context, id string) error

	ListObservationsBelow(ctx context.Context, projectID string, threshold float64, limit int) ([]record.ObservationIndex, error)
	ListMemoriesBelow(ctx context.Context, projectID string, threshold float64, limit int) ([]record.MemoryEntry, error)
	Counts(ctx context.Context, projectID string) (memories, observations int64, err error)
}

// AddResult reports a successful pipeline write. EmbeddingDim is a
// diagnostic signal for observability, not a contract value.
type AddResult struct {
	ID           string `json:"id"`
	EmbeddingDim int    `json:"embedding_dim"`
}

// embeddingMarker builds the stable marker stored in a row's
// embedding_id column. It indicates "a vector exists for this row"; it
// is not a dereferenceable path.
func embeddingMarker(id string) string {
	return "emb_" + id
}
