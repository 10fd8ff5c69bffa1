//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"mvx-assistant-api/internal/application/agent"
	"mvx-assistant-api/internal/application/retrieval"
	"mvx-assistant-api/internal/config"
	"mvx-assistant-api/internal/infrastructure/llm"
	"mvx-assistant-api/internal/infrastructure/scraper"
	"mvx-assistant-api/internal/interfaces/http/handler"
	"mvx-assistant-api/internal/interfaces/http/router"
	"mvx-assistant-api/internal/workflow/prompt"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RedisSet,
		ChainSet,
		RetrievalSet,
		AgentSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeIndexer 仅初始化语料构建链路（用于 corpus-probe）
func InitializeIndexer(ctx context.Context, cfg *config.Config) (*retrieval.Indexer, func(), error) {
	wire.Build(
		ProvideRedisClient,
		ProvideReportPublisher,
		CorpusSet,
	)
	return nil, nil, nil
}

// RedisSet 可选 Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideResponseCache,
	ProvideRateLimiter,
	ProvideRedisPinger,
	ProvideReportPublisher,
)

// ChainSet 链上数据客户端
var ChainSet = wire.NewSet(
	ProvideChainClient,
)

// CorpusSet 语料抓取、向量化与索引构建
var CorpusSet = wire.NewSet(
	ProvideEmbedder,
	ProvideFetcher,
	wire.Bind(new(retrieval.SourceFetcher), new(*scraper.Fetcher)),
	ProvideIndexer,
)

// RetrievalSet 本地检索引擎
var RetrievalSet = wire.NewSet(
	CorpusSet,
	ProvideRetrievalEngine,
)

// AgentSet 工具注册表与问答编排
var AgentSet = wire.NewSet(
	ProvideToolRegistry,
	llm.NewEinoFactory,
	wire.Bind(new(agent.ModelFactory), new(*llm.EinoFactory)),
	prompt.NewRegistry,
	ProvideReasoner,
	ProvideOrchestrator,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideChatHandler,
	ProvideHealthHandler,
	handler.NewCorpusHandler,
	wire.Bind(new(handler.Answerer), new(*agent.Orchestrator)),
	wire.Bind(new(handler.CorpusIndexer), new(*retrieval.Indexer)),
	wire.Bind(new(handler.CorpusSearcher), new(*retrieval.Engine)),
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
