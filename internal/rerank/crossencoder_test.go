package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockRerankServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewCrossEncoderReranker_HealthCheckFails(t *testing.T) {
	srv := mockRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := NewCrossEncoderReranker(context.Background(), CrossEncoderConfig{Endpoint: srv.URL})
	assert.Error(t, err)
}

func TestNewCrossEncoderReranker_SkipHealthCheck(t *testing.T) {
	r, err := NewCrossEncoderReranker(context.Background(), CrossEncoderConfig{
		Endpoint:        "http://127.0.0.1:0",
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	require.NotNil(t, r)
}

func TestCrossEncoderReranker_Rerank_ReordersByScore(t *testing.T) {
	srv := mockRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/rerank":
			var req rerankRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			resp := rerankResponse{Model: req.Model}
			resp.Results = []struct {
				Index int     `json:"index"`
				Score float64 `json:"score"`
			}{
				{Index: 1, Score: 0.9},
				{Index: 0, Score: 0.2},
			}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}
	})

	r, err := NewCrossEncoderReranker(context.Background(), CrossEncoderConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer r.Close()

	cands := []Candidate{
		{ChunkID: "first", Text: "alpha"},
		{ChunkID: "second", Text: "beta"},
	}
	results, err := r.Rerank(context.Background(), "query", cands)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "second", results[0].ChunkID)
	assert.InDelta(t, 0.9, results[0].Score, 0.001)
	assert.Equal(t, "first", results[1].ChunkID)
	assert.InDelta(t, 0.2, results[1].Score, 0.001)
}

func TestCrossEncoderReranker_Rerank_EmptyCandidates(t *testing.T) {
	srv := mockRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r, err := NewCrossEncoderReranker(context.Background(), CrossEncoderConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer r.Close()

	results, err := r.Rerank(context.Background(), "query", []Candidate{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCrossEncoderReranker_Rerank_MismatchedResultCountErrors(t *testing.T) {
	srv := mockRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/rerank":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(rerankResponse{})
		}
	})

	r, err := NewCrossEncoderReranker(context.Background(), CrossEncoderConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Rerank(context.Background(), "query", candidates("a", "b"))
	assert.Error(t, err)
}

func TestCrossEncoderReranker_Rerank_ClosedReturnsError(t *testing.T) {
	srv := mockRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r, err := NewCrossEncoderReranker(context.Background(), CrossEncoderConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Rerank(context.Background(), "query", candidates("a"))
	assert.Error(t, err)
}

func TestCrossEncoderReranker_Available(t *testing.T) {
	srv := mockRerankServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r, err := NewCrossEncoderReranker(context.Background(), CrossEncoderConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.Available(context.Background()))
}

func TestCrossEncoderReranker_InterfaceCompliance(t *testing.T) {
	var _ Reranker = (*CrossEncoderReranker)(nil)
}

func TestDefaultCrossEncoderConfig_Defaults(t *testing.T) {
	cfg := DefaultCrossEncoderConfig()
	assert.Equal(t, DefaultCrossEncoderEndpoint, cfg.Endpoint)
	assert.Equal(t, DefaultCrossEncoderModel, cfg.Model)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}
