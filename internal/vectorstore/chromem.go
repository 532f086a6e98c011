package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemConfig holds configuration for the chromem-go embedded store.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty means
	// in-memory only (tests, throwaway runs).
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool
}

// ChromemStore implements the Store interface using chromem-go.
//
// chromem-go is an embeddable vector database with zero third-party
// dependencies: no external service, pure Go, optional persistence to
// gob files. It is the development/laptop alternative to the Qdrant
// store; both use pre-computed embeddings, chromem just holds them in
// process.
//
// Payloads round-trip through chromem's string-only metadata: values
// are rendered to strings on write and sniffed back (int, float, bool,
// else string) on read.
type ChromemStore struct {
	db     *chromem.DB
	config ChromemConfig

	// dims records the dimension each collection was created with, so
	// Upsert can enforce it (chromem itself does not).
	dims sync.Map
}

// NewChromemStore creates a ChromemStore, persistent when config.Path is
// set and purely in-memory otherwise.
func NewChromemStore(config ChromemConfig) (*ChromemStore, error) {
	var db *chromem.DB
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandPath(config.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		db, err = chromem.NewPersistentDB(path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db at %s: %w", path, err)
		}
	}

	return &ChromemStore{db: db, config: config}, nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// noEmbedding is the embedding func handed to chromem. Vectors are always
// supplied explicitly, so chromem should never need to call it.
func noEmbedding(_ context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("no embedding function configured: vectors must be supplied explicitly")
}

// EnsureCollection creates the collection if absent and records its
// dimension for upsert-time enforcement.
func (s *ChromemStore) EnsureCollection(_ context.Context, name string, dim int) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, dim)
	}

	if existing, ok := s.dims.Load(name); ok {
		if existing.(int) != dim {
			return fmt.Errorf("%w: collection %s has dimension %d, requested %d",
				ErrDimensionMismatch, name, existing.(int), dim)
		}
		return nil
	}

	if _, err := s.db.GetOrCreateCollection(name, nil, noEmbedding); err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
	s.dims.Store(name, dim)
	return nil
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	col := s.db.GetCollection(name, noEmbedding)
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return col, nil
}

// Upsert writes a vector with its payload. Re-adding an existing id
// replaces the previous document.
func (s *ChromemStore) Upsert(ctx context.Context, collection, id string, vector []float32, payload Payload) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	if dim, ok := s.dims.Load(collection); ok && dim.(int) != len(vector) {
		return fmt.Errorf("%w: collection %s expects dimension %d, got %d",
			ErrDimensionMismatch, collection, dim.(int), len(vector))
	}

	col, err := s.collection(collection)
	if err != nil {
		return err
	}

	// chromem requires non-empty content; the content field is not part
	// of the payload contract, so mirror the id.
	content := payload.GetString("content")
	if content == "" {
		content = id
	}

	doc := chromem.Document{
		ID:        PointID(id),
		Metadata:  payloadToMetadata(payload),
		Embedding: vector,
		Content:   content,
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("adding document to collection %s: %w", collection, err)
	}
	return nil
}

// Search returns up to topK nearest neighbours by cosine similarity.
func (s *ChromemStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredPoint, error) {
	return s.search(ctx, collection, vector, topK, nil)
}

// SearchFiltered is Search restricted to a single project's payloads.
func (s *ChromemStore) SearchFiltered(ctx context.Context, collection string, vector []float32, topK int, projectID string) ([]ScoredPoint, error) {
	return s.search(ctx, collection, vector, topK, map[string]string{"project_id": projectID})
}

func (s *ChromemStore) search(ctx context.Context, collection string, vector []float32, topK int, where map[string]string) ([]ScoredPoint, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the document count.
	count := col.Count()
	if count == 0 {
		return []ScoredPoint{}, nil
	}
	if topK > count {
		topK = count
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", collection, err)
	}

	points := make([]ScoredPoint, len(results))
	for i, res := range results {
		payload := payloadFromMetadata(res.Metadata)
		id := payload.GetString("id")
		if id == "" {
			id = res.ID
		}
		points[i] = ScoredPoint{ID: id, Score: res.Similarity, Payload: payload}
	}
	return points, nil
}

// Delete removes the point stored under the given record id.
func (s *ChromemStore) Delete(ctx context.Context, collection, id string) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, PointID(id)); err != nil {
		return fmt.Errorf("deleting from collection %s: %w", collection, err)
	}
	return nil
}

// Count returns the number of points in the collection.
func (s *ChromemStore) Count(_ context.Context, collection string) (uint64, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return 0, err
	}
	col, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return uint64(col.Count()), nil
}

// Close is a no-op for the embedded store; persistence happens on write.
func (s *ChromemStore) Close() error {
	return nil
}

// payloadToMetadata renders payload values as strings for chromem.
func payloadToMetadata(payload Payload) map[string]string {
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		out[k] = v.String()
	}
	return out
}

// payloadFromMetadata sniffs payload values back out of string metadata.
// A string field that happens to look numeric comes back typed; the
// callers that care (id, project_id, content) always hold
// non-numeric-looking strings in practice.
func payloadFromMetadata(metadata map[string]string) Payload {
	out := make(Payload, len(metadata))
	for k, v := range metadata {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			out[k] = IntegerValue(i)
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out[k] = FloatValue(f)
			continue
		}
		if b, err := strconv.ParseBool(v); err == nil {
			out[k] = BoolValue(b)
			continue
		}
		out[k] = StringValue(v)
	}
	return out
}

// Ensure ChromemStore implements Store interface.
var _ Store = (*ChromemStore)(nil)
