package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mvx-assistant-api/internal/application/retrieval"
)

func newTestProducer(t *testing.T, maxLen int64) (*Producer, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewProducer(client, maxLen), client, mr
}

func TestPublishIngestReport(t *testing.T) {
	p, client, _ := newTestProducer(t, 0)
	ctx := context.Background()

	report := &retrieval.IngestReport{
		RunID:     "run-1",
		Sources:   3,
		Succeeded: []string{"https://multiversx.com", "https://multiversx.com/about"},
		Failed:    []retrieval.SourceFailure{{SourceID: "https://multiversx.com/technology", Reason: "status 500"}},
		Segments:  17,
		Dimension: 1536,
		StartedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Duration:  2 * time.Second,
	}
	require.NoError(t, p.PublishIngestReport(ctx, report))

	entries, err := client.XRange(ctx, string(StreamCorpusReports), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, TypeIngestReport, entries[0].Values["type"])

	var msg Message
	require.NoError(t, jsonUnmarshal(entries[0].Values["data"], &msg))
	assert.Equal(t, "run-1", msg.ID)
	assert.Equal(t, "partial", msg.Metadata["status"])
	assert.Equal(t, "17", msg.Metadata["segments"])

	var back retrieval.IngestReport
	require.NoError(t, msg.UnmarshalPayload(&back))
	assert.Equal(t, report.Failed, back.Failed)
	assert.Equal(t, report.Duration, back.Duration)
}

func TestPublishFailsWhenRedisDown(t *testing.T) {
	p, _, mr := newTestProducer(t, 10)
	mr.Close()

	err := p.PublishIngestReport(context.Background(), &retrieval.IngestReport{RunID: "run-2"})
	assert.ErrorContains(t, err, "failed to publish message")
}

func jsonUnmarshal(v any, out any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("stream value is %T, want string", v)
	}
	return json.Unmarshal([]byte(s), out)
}
