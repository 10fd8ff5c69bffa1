package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"mvx-assistant-api/internal/config"
	"mvx-assistant-api/pkg/metrics"
)

const (
	ProviderOpenAI = "openai"
	ProviderHTTP   = "http"
)

// NewEinoEmbedder 按 provider 创建 Embedder，并附加调用计数
func NewEinoEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedding config is required")
	}

	var (
		inner embedding.Embedder
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedding api_key is required for provider %q", ProviderOpenAI)
		}
		// 使用 Eino 的 OpenAI 适配器
		inner, err = openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.Endpoint,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create eino embedder: %w", err)
		}
	case ProviderHTTP:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("embedding endpoint is required for provider %q", ProviderHTTP)
		}
		inner = NewClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	return &countingEmbedder{inner: inner, workflow: "corpus"}, nil
}

// countingEmbedder 记录 embedding 调用次数与结果
type countingEmbedder struct {
	inner    embedding.Embedder
	workflow string
}

func (e *countingEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	out, err := e.inner.EmbedStrings(ctx, texts, opts...)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.EmbeddingCallTotal.WithLabelValues(e.workflow, status).Inc()
	return out, err
}
