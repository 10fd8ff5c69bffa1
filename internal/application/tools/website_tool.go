package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"mvx-assistant-api/internal/application/retrieval"
)

const NameWebsiteInfo = "get_website_info"

// Searcher 语义检索能力；首次调用时负责按需构建索引
type Searcher interface {
	Search(ctx context.Context, query string) ([]retrieval.Hit, error)
}

type websiteInfoTool struct {
	spec
	searcher Searcher
}

// NewWebsiteInfoTool 官网语料语义检索工具，返回 {"context": [...]}
func NewWebsiteInfoTool(searcher Searcher) Tool {
	return &websiteInfoTool{
		spec: spec{
			name:    NameWebsiteInfo,
			desc:    "Use this tool to get information from MultiversX website about features, technology, or general information.",
			kind:    KindWebsiteInfo,
			argDesc: "What to look up on the MultiversX website",
		},
		searcher: searcher,
	}
}

func (t *websiteInfoTool) Invoke(ctx context.Context, argument string) (string, error) {
	hits, err := t.searcher.Search(ctx, argument)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(struct {
		Context []string `json:"context"`
	}{Context: retrieval.ContextTexts(hits)})
	if err != nil {
		return "", fmt.Errorf("failed to encode search context: %w", err)
	}
	return string(b), nil
}
