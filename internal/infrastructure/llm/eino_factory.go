// Package llm 管理基于 Eino 的大模型客户端
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"mvx-assistant-api/internal/config"
	"mvx-assistant-api/internal/workflow/port"
)

var _ port.ChatModelFactory = (*EinoFactory)(nil)

// EinoFactory 管理多个 Eino ChatModel 客户端实例
type EinoFactory struct {
	config *config.LLMConfig
	build  func(ctx context.Context, cfg *openai.ChatModelConfig) (model.BaseChatModel, error)

	mu     sync.RWMutex
	models map[string]model.BaseChatModel
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		build:  newOpenAIChatModel,
		models: make(map[string]model.BaseChatModel),
	}
}

func newOpenAIChatModel(ctx context.Context, cfg *openai.ChatModelConfig) (model.BaseChatModel, error) {
	return openai.NewChatModel(ctx, cfg)
}

// Get 获取指定名称的 ChatModel，name 为空时返回默认提供商
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	name, providerCfg, ok := f.config.ProviderFor(name)

	f.mu.RLock()
	m, cached := f.models[name]
	f.mu.RUnlock()
	if cached {
		return m, nil
	}
	if !ok {
		return nil, fmt.Errorf("provider %q not found in LLM config", name)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, cached = f.models[name]; cached {
		return m, nil
	}

	chatModel, err := f.build(ctx, chatModelConfig(providerCfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// Default 返回默认 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

func chatModelConfig(p config.ProviderConfig) *openai.ChatModelConfig {
	cfg := &openai.ChatModelConfig{
		APIKey:      p.APIKey,
		BaseURL:     p.BaseURL,
		Model:       p.Model,
		Temperature: ptrFloat32(float32(p.Temperature)),
		Timeout:     p.Timeout,
	}
	if p.MaxTokens > 0 {
		maxTokens := p.MaxTokens
		cfg.MaxTokens = &maxTokens
	}
	return cfg
}

func ptrFloat32(f float32) *float32 {
	return &f
}
