package memorybank

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/record"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

// Service runs the write pipelines: embed content, persist the
// structured row, upsert the vector twin - in that order.
//
// Failure semantics along that sequence:
//   - embedding failure: fatal, nothing persisted;
//   - persistence failure: fatal, the already-generated vector is
//     discarded (never upserted for a row that failed to persist);
//   - vector upsert failure: surfaced as ErrVectorUpsert, but the row
//     remains. The marker-without-vector orphan is detectable and left
//     to a repair pass, not retried inline.
type Service struct {
	records  RecordStore
	vectors  vectorstore.Store
	embedder embeddings.Provider
	logger   *zap.Logger
}

// NewService creates a pipeline service.
func NewService(records RecordStore, vectors vectorstore.Store, embedder embeddings.Provider, logger *zap.Logger) (*Service, error) {
	if records == nil {
		return nil, fmt.Errorf("record store cannot be nil")
	}
	if vectors == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{records: records, vectors: vectors, embedder: embedder, logger: logger}, nil
}

// AddMemory embeds and stores a free-text memory.
func (s *Service) AddMemory(ctx context.Context, projectID, content string, typ record.MemoryType, memContext string) (*AddResult, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMemoryType, typ)
	}
	if projectID == "" {
		return nil, ErrEmptyProjectID
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	vector, err := s.embedder.EmbedQuery(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embedding memory content: %w", err)
	}

	entry := &record.MemoryEntry{
		ID:          id,
		ProjectID:   projectID,
		Content:     content,
		Type:        typ,
		Context:     memContext,
		Confidence:  1.0,
		EmbeddingID: embeddingMarker(id),
		CreatedAt:   now,
	}
	if err := s.records.CreateMemory(ctx, entry); err != nil {
		return nil, fmt.Errorf("persisting memory: %w", err)
	}

	payload, err := vectorstore.NewPayload(map[string]any{
		"id":         id,
		"project_id": projectID,
		"content":    content,
		"type":       string(typ),
		"context":    memContext,
		"created_at": now.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("building payload: %w", err)
	}

	if err := s.index(ctx, CollectionMemories, id, vector, payload); err != nil {
		return nil, err
	}

	s.logger.Info("memory added",
		zap.String("id", id),
		zap.String("project_id", projectID),
		zap.String("type", string(typ)))

	return &AddResult{ID: id, EmbeddingDim: len(vector)}, nil
}

// ObservationParams carries the input of AddObservation.
type ObservationParams struct {
	ProjectID     string
	SessionID     string
	Type          record.ObservationType
	Title         string
	Narrative     string
	Facts         []string
	Concepts      []string
	FilesModified []string
	FilesRead     []string
	Confidence    float64
}

// AddObservation embeds and stores a structured observation.
//
// The embedding input is composed from title, narrative and facts so
// semantic search matches on detail, not just the headline. Confidence
// is stored as supplied, not renormalized.
func (s *Service) AddObservation(ctx context.Context, p ObservationParams) (*AddResult, error) {
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidObservationType, p.Type)
	}
	if p.ProjectID == "" {
		return nil, ErrEmptyProjectID
	}
	if p.Title == "" {
		return nil, ErrEmptyTitle
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfidence, p.Confidence)
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	vector, err := s.embedder.EmbedQuery(ctx, composeObservationText(p))
	if err != nil {
		return nil, fmt.Errorf("embedding observation: %w", err)
	}

	obs := &record.Observation{
		ID:            id,
		ProjectID:     p.ProjectID,
		SessionID:     p.SessionID,
		Type:          p.Type,
		Title:         p.Title,
		Narrative:     p.Narrative,
		Facts:         p.Facts,
		Concepts:      p.Concepts,
		FilesModified: p.FilesModified,
		FilesRead:     p.FilesRead,
		Confidence:    p.Confidence,
		EmbeddingID:   embeddingMarker(id),
		CreatedAt:     now,
	}
	if err := s.records.CreateObservation(ctx, obs); err != nil {
		return nil, fmt.Errorf("persisting observation: %w", err)
	}

	payload, err := vectorstore.NewPayload(map[string]any{
		"id":         id,
		"project_id": p.ProjectID,
		"session_id": p.SessionID,
		"type":       string(p.Type),
		"title":      p.Title,
		"narrative":  p.Narrative,
		"facts":      p.Facts,
		"concepts":   p.Concepts,
		"confidence": p.Confidence,
		"created_at": now.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("building payload: %w", err)
	}

	if err := s.index(ctx, CollectionObservations, id, vector, payload); err != nil {
		return nil, err
	}

	s.logger.Info("observation added",
		zap.String("id", id),
		zap.String("project_id", p.ProjectID),
		zap.String("type", string(p.Type)),
		zap.Float64("confidence", p.Confidence))

	return &AddResult{ID: id, EmbeddingDim: len(vector)}, nil
}

// index upserts the vector twin of an already-persisted row.
func (s *Service) index(ctx context.Context, collection, id string, vector []float32, payload vectorstore.Payload) error {
	if err := s.vectors.EnsureCollection(ctx, collection, len(vector)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrVectorUpsert, id, err)
	}
	if err := s.vectors.Upsert(ctx, collection, id, vector, payload); err != nil {
		s.logger.Warn("vector upsert failed, row retains orphaned embedding marker",
			zap.String("id", id),
			zap.String("collection", collection),
			zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrVectorUpsert, id, err)
	}
	return nil
}

// composeObservationText builds the embedding input: title, then
// narrative, then facts joined by ", ".
func composeObservationText(p ObservationParams) string {
	var b strings.Builder
	b.WriteString(p.Title)
	if p.Narrative != "" {
		b.WriteString(". ")
		b.WriteString(p.Narrative)
	}
	if len(p.Facts) > 0 {
		b.WriteString(". ")
		b.WriteString(strings.Join(p.Facts, ", "))
	}
	return b.String()
}
