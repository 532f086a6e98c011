// Package vectorstore provides vector storage implementations.
package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("recalld.vectorstore.qdrant")

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (6334, not the 6333 HTTP port).
	Port int

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// MaxRetries is the maximum number of retry attempts for transient
	// failures. Default: 3.
	MaxRetries int

	// RetryBackoff is the initial backoff duration for retries, doubling
	// on each attempt. Default: 1s.
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB.
	MaxMessageSize int

	// CircuitBreakerThreshold is the number of failures before the
	// circuit opens. Default: 5.
	CircuitBreakerThreshold int
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = 5
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	return nil
}

// IsTransientError reports whether an error should be retried.
// True for network timeouts and temporary unavailability, false for
// invalid arguments, not found, permission denied.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// QdrantStore is a Store implementation using Qdrant's native gRPC client.
//
// Every operation is a remote call; the only local state is a cache of
// collection existence and the circuit breaker counters.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig

	// collections caches collection existence to avoid repeated checks.
	collections sync.Map

	circuitBreaker struct {
		failures int
		lastFail time.Time
		mu       sync.Mutex
	}
}

// NewQdrantStore creates a QdrantStore and verifies connectivity with a
// health check.
func NewQdrantStore(config QdrantConfig) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{
		client: client,
		config: config,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}

	return store, nil
}

// Close closes the Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// retryOperation retries an operation with exponential backoff.
func (s *QdrantStore) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			s.resetCircuitBreaker()
			return nil
		}

		if s.isCircuitOpen() {
			return fmt.Errorf("%s: circuit breaker open", operationName)
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", operationName, err)
		}

		s.recordFailure()
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", operationName, s.config.MaxRetries, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

func (s *QdrantStore) recordFailure() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures++
	s.circuitBreaker.lastFail = time.Now()
}

func (s *QdrantStore) resetCircuitBreaker() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures = 0
}

func (s *QdrantStore) isCircuitOpen() bool {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()

	if s.circuitBreaker.failures >= s.config.CircuitBreakerThreshold {
		// Allow retry after 30 seconds.
		if time.Since(s.circuitBreaker.lastFail) > 30*time.Second {
			s.circuitBreaker.failures = 0
			return false
		}
		return true
	}
	return false
}

// EnsureCollection creates a cosine-distance collection if absent.
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.EnsureCollection")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("dim", dim),
	)

	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, dim)
	}

	if _, ok := s.collections.Load(name); ok {
		return nil
	}

	err := s.retryOperation(ctx, "ensure_collection", func() error {
		exists, err := s.client.CollectionExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("ensuring collection %s: %w", name, err)
	}

	s.collections.Store(name, true)
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Upsert writes a vector with its payload under the given record id.
func (s *QdrantStore) Upsert(ctx context.Context, collection, id string, vector []float32, payload Payload) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.Upsert")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.String("id", id),
	)

	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	if len(vector) == 0 {
		return fmt.Errorf("vector cannot be empty")
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(PointID(id)),
		Vectors: qdrant.NewVectors(vector...),
		Payload: payloadToQdrant(payload),
	}

	err := s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         []*qdrant.PointStruct{point},
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting point to collection %s: %w", collection, err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Search returns up to topK nearest neighbours by cosine similarity.
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredPoint, error) {
	return s.search(ctx, collection, vector, topK, "")
}

// SearchFiltered is Search restricted to a single project's payloads.
func (s *QdrantStore) SearchFiltered(ctx context.Context, collection string, vector []float32, topK int, projectID string) ([]ScoredPoint, error) {
	return s.search(ctx, collection, vector, topK, projectID)
}

func (s *QdrantStore) search(ctx context.Context, collection string, vector []float32, topK int, projectID string) ([]ScoredPoint, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Search")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("top_k", topK),
		attribute.Bool("filtered", projectID != ""),
	)

	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	const maxK = 10000
	if topK > maxK {
		topK = maxK
	}

	var filter *qdrant.Filter
	if projectID != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key: "project_id",
							Match: &qdrant.Match{
								MatchValue: &qdrant.Match_Keyword{Keyword: projectID},
							},
						},
					},
				},
			},
		}
	}

	var results []*qdrant.ScoredPoint
	err := s.retryOperation(ctx, "search", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(topK)),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         filter,
		})
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching collection %s: %w", collection, err)
	}

	points := make([]ScoredPoint, len(results))
	for i, res := range results {
		payload := payloadFromQdrant(res.Payload)
		id := payload.GetString("id")
		if id == "" {
			id = pointIDString(res.Id)
		}
		points[i] = ScoredPoint{ID: id, Score: res.Score, Payload: payload}
	}

	span.SetAttributes(attribute.Int("results_count", len(points)))
	span.SetStatus(codes.Ok, "success")
	return points, nil
}

// Delete removes the point stored under the given record id.
func (s *QdrantStore) Delete(ctx context.Context, collection, id string) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.String("id", id),
	)

	if err := ValidateCollectionName(collection); err != nil {
		return err
	}

	err := s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Points{
					Points: &qdrant.PointsIdsList{
						Ids: []*qdrant.PointId{qdrant.NewIDUUID(PointID(id))},
					},
				},
			},
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting point from collection %s: %w", collection, err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Count returns the number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context, collection string) (uint64, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Count")
	defer span.End()

	span.SetAttributes(attribute.String("collection", collection))

	if err := ValidateCollectionName(collection); err != nil {
		return 0, err
	}

	var count uint64
	err := s.retryOperation(ctx, "count", func() error {
		n, err := s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: collection,
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			st, ok := status.FromError(err)
			if ok && st.Code() == grpccodes.NotFound {
				return ErrCollectionNotFound
			}
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("counting collection %s: %w", collection, err)
	}

	span.SetAttributes(attribute.Int64("point_count", int64(count)))
	span.SetStatus(codes.Ok, "success")
	return count, nil
}

// payloadToQdrant converts a Payload to the Qdrant wire representation.
func payloadToQdrant(payload Payload) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(payload))
	for k, v := range payload {
		switch v.Kind {
		case KindString:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v.Str}}
		case KindInteger:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: v.Int}}
		case KindFloat:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: v.Float}}
		case KindBool:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: v.Bool}}
		}
	}
	return out
}

// payloadFromQdrant converts a Qdrant payload back into a Payload.
// Non-scalar values never enter the store (rejected at the write
// boundary), so anything else found here is dropped.
func payloadFromQdrant(payload map[string]*qdrant.Value) Payload {
	out := make(Payload, len(payload))
	for k, v := range payload {
		switch val := v.Kind.(type) {
		case *qdrant.Value_StringValue:
			out[k] = StringValue(val.StringValue)
		case *qdrant.Value_IntegerValue:
			out[k] = IntegerValue(val.IntegerValue)
		case *qdrant.Value_DoubleValue:
			out[k] = FloatValue(val.DoubleValue)
		case *qdrant.Value_BoolValue:
			out[k] = BoolValue(val.BoolValue)
		}
	}
	return out
}

// pointIDString renders a native Qdrant point id as a string.
func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	default:
		return ""
	}
}

// Ensure QdrantStore implements Store interface.
var _ Store = (*QdrantStore)(nil)
