// Package vectorstore defines the interface for vector storage operations.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrDimensionMismatch is returned when a vector's length does not match
	// the dimension the collection was created with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to vector engine")
)

// collectionNamePattern validates collection names.
// Pattern: lowercase letters, numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName validates a collection name against naming rules.
// Rejects uppercase, special chars, path traversal, spaces.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// ScoredPoint is a single similarity search hit.
type ScoredPoint struct {
	// ID is the record identifier: the payload "id" field when present,
	// otherwise the store's native point id.
	ID string

	// Score is the cosine similarity (higher = more similar).
	Score float32

	// Payload is the flat scalar metadata stored with the vector.
	Payload Payload
}

// Store is the interface for vector storage operations.
//
// This interface is transport-agnostic - implementations can use gRPC
// (Qdrant) or embedded storage (chromem-go). Every vector in a collection
// has the dimension the collection was created with; payloads are flat
// scalar maps (see Payload).
//
// Implementations hold no local copy of the stored data. They may cache
// collection existence to avoid repeated round trips, nothing more.
type Store interface {
	// EnsureCollection creates a cosine-distance collection of the given
	// dimension if it does not exist yet. Idempotent.
	EnsureCollection(ctx context.Context, name string, dim int) error

	// Upsert writes a vector with its payload under the given record id.
	// Arbitrary string ids are mapped onto point ids deterministically
	// (see PointID); the original id should be carried in the payload
	// "id" field so search results can surface it.
	Upsert(ctx context.Context, collection, id string, vector []float32, payload Payload) error

	// Search returns up to topK nearest neighbours by cosine similarity,
	// descending.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredPoint, error)

	// SearchFiltered is Search restricted to points whose payload
	// "project_id" field equals projectID (exact match).
	SearchFiltered(ctx context.Context, collection string, vector []float32, topK int, projectID string) ([]ScoredPoint, error)

	// Delete removes the point stored under the given record id.
	// Deleting an absent id is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Count returns the number of points in the collection.
	Count(ctx context.Context, collection string) (uint64, error)

	// Close releases the underlying connection or storage handle.
	Close() error
}
