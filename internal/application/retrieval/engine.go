package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	"mvx-assistant-api/pkg/tracer"
)

const defaultTopK = 3

// Engine 语义检索：按需构建索引 -> 向量化查询 -> 快照 top-k。
type Engine struct {
	embedder embedding.Embedder
	indexer  *Indexer
	topK     int
}

func NewEngine(embedder embedding.Embedder, indexer *Indexer, topK int) *Engine {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Engine{
		embedder: embedder,
		indexer:  indexer,
		topK:     topK,
	}
}

// TopK 默认返回条数
func (e *Engine) TopK() int { return e.topK }

// Search 使用默认 topK 检索
func (e *Engine) Search(ctx context.Context, query string) ([]Hit, error) {
	return e.SearchK(ctx, query, e.topK)
}

// SearchK 检索与 query 最相近的 k 个切片。整个查询只读取同一个快照。
func (e *Engine) SearchK(ctx context.Context, query string, k int) (hits []Hit, err error) {
	ctx, span := tracer.Start(ctx, "retrieval.Engine.Search")
	defer func() { tracer.Finish(span, err) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	snap, err := e.indexer.EnsureIndex(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if d := snap.Dimension(); d != 0 && d != len(vec) {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", ErrEmbeddingUnavailable, len(vec), d)
	}
	return snap.Search(vec, k), nil
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := embedBatch(ctx, e.embedder, []string{query}, 1)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
