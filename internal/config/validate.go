package config

import (
	"fmt"
	"net/url"
	"strings"

	"mvx-assistant-api/pkg/errors"
)

// Validate 启动期配置校验，失败返回 InvalidConfiguration
func (c *Config) Validate() error {
	var problems []string

	if c.Corpus.ChunkSize <= 0 {
		problems = append(problems, "corpus.chunk_size must be positive")
	}
	if c.Corpus.ChunkOverlap < 0 {
		problems = append(problems, "corpus.chunk_overlap must not be negative")
	}
	if c.Corpus.ChunkSize > 0 && c.Corpus.ChunkOverlap >= c.Corpus.ChunkSize {
		problems = append(problems, "corpus.chunk_overlap must be smaller than corpus.chunk_size")
	}
	if len(c.Corpus.Sources) == 0 {
		problems = append(problems, "corpus.sources must not be empty")
	}
	for _, src := range c.Corpus.Sources {
		u, err := url.Parse(strings.TrimSpace(src))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("corpus.sources: invalid url %q", src))
		}
	}
	if c.Agent.MaxIterations <= 0 {
		problems = append(problems, "agent.max_iterations must be positive")
	}
	if c.Agent.SearchTopK <= 0 {
		problems = append(problems, "agent.search_top_k must be positive")
	}
	if name, _, ok := c.LLM.ProviderFor(c.Agent.Provider); !ok {
		problems = append(problems, fmt.Sprintf("llm provider %q is not configured", name))
	}
	if strings.TrimSpace(c.Chain.BaseURL) == "" {
		problems = append(problems, "chain.base_url is required")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(errors.CodeInvalidConfiguration, "invalid configuration").
		WithDetail(strings.Join(problems, "; "))
}
