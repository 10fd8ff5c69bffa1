package eino

import (
	"context"
	"errors"
	"testing"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"mvx-assistant-api/pkg/metrics"
)

func TestWorkflowProviderLabels(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", WorkflowFromContext(ctx))
	assert.Equal(t, "unknown", ProviderFromContext(ctx))

	ctx = WithWorkflowProvider(ctx, " agent_answer ", "openai")
	assert.Equal(t, "agent_answer", WorkflowFromContext(ctx))
	assert.Equal(t, "openai", ProviderFromContext(ctx))

	// 空值不覆盖已有标签
	ctx = WithProvider(ctx, "  ")
	assert.Equal(t, "openai", ProviderFromContext(ctx))
}

func TestChatModelHandlerRecordsMetrics(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := WithWorkflowProvider(context.Background(), "handler_test", "fake")
	info := &einocb.RunInfo{Name: "reason", Type: "FakeModel"}

	success := metrics.LLMCallTotal.WithLabelValues("handler_test", "fake", "m1", "success")
	prompt := metrics.LLMTokensUsed.WithLabelValues("handler_test", "fake", "m1", "prompt")
	before := testutil.ToFloat64(success)
	beforePrompt := testutil.ToFloat64(prompt)

	runCtx := h.OnStart(ctx, info, &model.CallbackInput{Config: &model.Config{Model: "m1"}})
	assert.NotNil(t, runCtx.Value(startTimeKey{}))
	h.OnEnd(runCtx, info, &model.CallbackOutput{
		Config:     &model.Config{Model: "m1"},
		TokenUsage: &model.TokenUsage{PromptTokens: 12, CompletionTokens: 3},
	})

	assert.Equal(t, before+1, testutil.ToFloat64(success))
	assert.Equal(t, beforePrompt+12, testutil.ToFloat64(prompt))

	failed := metrics.LLMCallTotal.WithLabelValues("handler_test", "fake", "FakeModel", "error")
	beforeErr := testutil.ToFloat64(failed)
	h.OnError(h.OnStart(ctx, info, nil), info, errors.New("boom"))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(failed))
}

func TestElapsedSecondsWithoutStart(t *testing.T) {
	assert.Zero(t, elapsedSeconds(context.Background()))
}

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
