package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTEIServer(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewService(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return svc
}

func TestService_EmbedQuery(t *testing.T) {
	svc := newTEIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req teiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello world", req.Inputs)

		_ = json.NewEncoder(w).Encode([][]float32{{0.1, 0.2, 0.3}})
	})

	vec, err := svc.EmbedQuery(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestService_EmbedDocuments(t *testing.T) {
	svc := newTEIServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([][]float32{{1, 0}, {0, 1}})
	})

	vecs, err := svc.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
}

func TestService_ServerErrorIsUnavailable(t *testing.T) {
	svc := newTEIServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	})

	_, err := svc.EmbedQuery(context.Background(), "query")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestService_TransportErrorIsUnavailable(t *testing.T) {
	svc, err := NewService(Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "query")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestService_EmptyInput(t *testing.T) {
	svc := newTEIServer(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := svc.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestService_RequiresBaseURL(t *testing.T) {
	_, err := NewService(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewProvider_SelectsImplementation(t *testing.T) {
	hash, err := NewProvider(ProviderConfig{Provider: "hash", Dimension: 64})
	require.NoError(t, err)
	assert.Equal(t, 64, hash.Dimension())

	tei, err := NewProvider(ProviderConfig{Provider: "tei", BaseURL: "http://localhost:8080", Model: "bge-large-en"})
	require.NoError(t, err)
	assert.Equal(t, 1024, tei.Dimension())

	_, err = NewProvider(ProviderConfig{Provider: "cohere"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
