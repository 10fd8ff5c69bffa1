package wire

import (
	"context"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	"github.com/gin-gonic/gin"

	"mvx-assistant-api/internal/application/agent"
	"mvx-assistant-api/internal/application/retrieval"
	"mvx-assistant-api/internal/application/tools"
	"mvx-assistant-api/internal/config"
	"mvx-assistant-api/internal/infrastructure/chainapi"
	infraembedding "mvx-assistant-api/internal/infrastructure/embedding"
	"mvx-assistant-api/internal/infrastructure/messaging"
	"mvx-assistant-api/internal/infrastructure/persistence/redis"
	"mvx-assistant-api/internal/infrastructure/scraper"
	"mvx-assistant-api/internal/interfaces/http/handler"
	"mvx-assistant-api/internal/interfaces/http/middleware"
	"mvx-assistant-api/internal/interfaces/http/router"
	"mvx-assistant-api/internal/workflow/prompt"
	"mvx-assistant-api/pkg/logger"
)

const (
	chainCachePrefix   = "chain"
	reportStreamMaxLen = 1000
)

// App 应用依赖容器
type App struct {
	Router  *router.Router
	Indexer *retrieval.Indexer
}

// Engine 返回 Gin Engine
func (a *App) Engine() *gin.Engine {
	return a.Router.Engine()
}

// ProvideRedisClient 提供 Redis 客户端；未启用时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		logger.Info(ctx, "redis disabled, chain cache and rate limit are off")
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// 以下 Provide* 在 client 为 nil 时返回真正的 nil 接口，避免 typed-nil

func ProvideResponseCache(client *redis.Client) chainapi.ResponseCache {
	if client == nil {
		return nil
	}
	return redis.NewCache(client, chainCachePrefix)
}

func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideReportPublisher 构建报告写入 Redis Stream
func ProvideReportPublisher(client *redis.Client) retrieval.ReportPublisher {
	if client == nil {
		return nil
	}
	return messaging.NewProducer(client.Redis(), reportStreamMaxLen)
}

func ProvideRedisPinger(client *redis.Client) handler.Pinger {
	if client == nil {
		return nil
	}
	return client
}

// ProvideChainClient 提供 MultiversX API 客户端
func ProvideChainClient(cfg *config.Config, cache chainapi.ResponseCache) *chainapi.Client {
	return chainapi.NewClient(&cfg.Chain, cache)
}

// ProvideEmbedder 提供 Embedder（语义检索必需）
func ProvideEmbedder(ctx context.Context, cfg *config.Config) (einoembedding.Embedder, error) {
	return infraembedding.NewEinoEmbedder(ctx, &cfg.Embedding)
}

func ProvideFetcher(cfg *config.Config) *scraper.Fetcher {
	return scraper.NewFetcher(&cfg.Corpus)
}

// ProvideIndexer 提供语料构建器，维护进程内唯一的索引
func ProvideIndexer(cfg *config.Config, fetcher retrieval.SourceFetcher, embedder einoembedding.Embedder, publisher retrieval.ReportPublisher) (*retrieval.Indexer, error) {
	return retrieval.NewIndexer(fetcher, embedder, retrieval.NewIndex(), retrieval.IndexerConfig{
		Sources:          cfg.Corpus.Sources,
		ChunkSize:        cfg.Corpus.ChunkSize,
		ChunkOverlap:     cfg.Corpus.ChunkOverlap,
		BatchSize:        cfg.Embedding.BatchSize,
		FetchConcurrency: cfg.Corpus.FetchConcurrency,
		Publisher:        publisher,
	})
}

func ProvideRetrievalEngine(cfg *config.Config, embedder einoembedding.Embedder, indexer *retrieval.Indexer) *retrieval.Engine {
	return retrieval.NewEngine(embedder, indexer, cfg.Agent.SearchTopK)
}

// ProvideToolRegistry 注册全部问答工具
func ProvideToolRegistry(chain *chainapi.Client, engine *retrieval.Engine) (*tools.Registry, error) {
	return tools.NewRegistry(
		tools.NewAccountTool(chain),
		tools.NewTokenTool(chain),
		tools.NewNFTTool(chain),
		tools.NewNetworkStatsTool(chain),
		tools.NewWebsiteInfoTool(engine),
	)
}

func ProvideReasoner(cfg *config.Config, factory agent.ModelFactory, prompts *prompt.Registry) agent.Reasoner {
	return agent.NewChatModelReasoner(factory, prompts, cfg.Agent.Provider)
}

func ProvideOrchestrator(cfg *config.Config, reasoner agent.Reasoner, registry *tools.Registry) (*agent.Orchestrator, error) {
	return agent.NewOrchestrator(reasoner, registry, agent.Config{
		MaxIterations: cfg.Agent.MaxIterations,
		MaxHistory:    cfg.Agent.MaxHistory,
		Provider:      cfg.Agent.Provider,
	})
}

func ProvideChatHandler(cfg *config.Config, answerer handler.Answerer) *handler.ChatHandler {
	return handler.NewChatHandler(answerer, cfg.Agent.RequestTimeout)
}

func ProvideHealthHandler(cfg *config.Config, pinger handler.Pinger, indexer *retrieval.Indexer) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, pinger, indexer)
}
