package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mvx-assistant-api/internal/application/agent"
	"mvx-assistant-api/internal/application/retrieval"
	"mvx-assistant-api/internal/config"
	"mvx-assistant-api/internal/domain/entity"
	"mvx-assistant-api/internal/interfaces/http/handler"
)

type stubAnswerer struct{}

func (stubAnswerer) Answer(context.Context, string, []entity.ConversationTurn) (*agent.Answer, error) {
	return &agent.Answer{Text: "pong", Outcome: agent.OutcomeCompleted}, nil
}

type stubIndexer struct{}

func (stubIndexer) Rebuild(context.Context) (*retrieval.IngestReport, error) { return nil, nil }
func (stubIndexer) LastReport() *retrieval.IngestReport                      { return nil }
func (stubIndexer) Snapshot() *retrieval.Snapshot                            { return nil }

type stubSearcher struct{}

func (stubSearcher) SearchK(context.Context, string, int) ([]retrieval.Hit, error) { return nil, nil }
func (stubSearcher) TopK() int                                                     { return 4 }

type denyAll struct{}

func (denyAll) Allow(context.Context, string, int, time.Duration) (bool, int, error) {
	return false, 0, nil
}

func newTestRouter(limited bool) *Router {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Observability.Metrics.Enabled = true
	cfg.Observability.Metrics.Path = "/metrics"
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: limited, RequestsPerMinute: 1}

	handlers := &Handlers{
		Health: handler.NewHealthHandler("test", nil, stubIndexer{}),
		Chat:   handler.NewChatHandler(stubAnswerer{}, time.Second),
		Corpus: handler.NewCorpusHandler(stubIndexer{}, stubSearcher{}),
	}
	return New(cfg, handlers, denyAll{})
}

func TestRoutesRegistered(t *testing.T) {
	r := newTestRouter(false)

	got := map[string]bool{}
	for _, ri := range r.Engine().Routes() {
		got[ri.Method+" "+ri.Path] = true
	}
	for _, want := range []string{
		"GET /health", "GET /ready", "GET /live", "GET /metrics",
		"POST /api/chat", "POST /v1/chat",
		"GET /v1/corpus/status", "POST /v1/corpus/refresh",
		"POST /v1/retrieval/search",
	} {
		assert.True(t, got[want], want)
	}
}

func TestChatThroughMiddlewareStack(t *testing.T) {
	r := newTestRouter(false)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"ping"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":"pong"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRateLimitSkipsSystemEndpoints(t *testing.T) {
	r := newTestRouter(true)

	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"ping"}`)))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
