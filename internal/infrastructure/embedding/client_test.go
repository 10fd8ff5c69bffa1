package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mvx-assistant-api/internal/config"
)

func TestClientEmbedStrings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge-small", req.Model)

		resp := embedResponse{}
		for i := range req.Texts {
			resp.Embeddings = append(resp.Embeddings, []float64{float64(i), 1})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(&config.EmbeddingConfig{Endpoint: srv.URL, Model: "bge-small"})
	out, err := c.EmbedStrings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 1}, {1, 1}}, out)

	empty, err := c.EmbedStrings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestClientEmbedStringsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("short") != "" {
			_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float64{{1}}})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(&config.EmbeddingConfig{Endpoint: srv.URL}).EmbedStrings(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "status=503")

	_, err = NewClient(&config.EmbeddingConfig{Endpoint: srv.URL + "/embed?short=1"}).EmbedStrings(context.Background(), []string{"x", "y"})
	assert.ErrorContains(t, err, "size mismatch")

	_, err = NewClient(&config.EmbeddingConfig{}).EmbedStrings(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "endpoint is empty")
}

func TestNewEinoEmbedderSelectsProvider(t *testing.T) {
	e, err := NewEinoEmbedder(context.Background(), &config.EmbeddingConfig{Provider: "http", Endpoint: "http://localhost:9"})
	require.NoError(t, err)
	assert.IsType(t, &countingEmbedder{}, e)

	_, err = NewEinoEmbedder(context.Background(), &config.EmbeddingConfig{Provider: "openai"})
	assert.ErrorContains(t, err, "api_key")

	_, err = NewEinoEmbedder(context.Background(), &config.EmbeddingConfig{Provider: "bogus"})
	assert.ErrorContains(t, err, "unsupported")
}
