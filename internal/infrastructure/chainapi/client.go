// Package chainapi 提供 MultiversX 公共 API 客户端
package chainapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"mvx-assistant-api/internal/config"
	"mvx-assistant-api/pkg/metrics"
	"mvx-assistant-api/pkg/tracer"
)

const (
	DefaultBaseURL = "https://api.multiversx.com"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20

	maxErrorBodyRunes = 200
)

var (
	// ErrNotFound 链上不存在该对象
	ErrNotFound = errors.New("not found on chain")
	// ErrEmptyArgument 查询参数为空
	ErrEmptyArgument = errors.New("argument is required")
)

// ResponseCache 响应缓存（Redis 实现）；为 nil 时直连
type ResponseCache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(context.Context) ([]byte, error)) ([]byte, error)
}

// Client MultiversX API 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      ResponseCache
	cacheTTL   time.Duration
}

func NewClient(cfg *config.ChainConfig, cache ResponseCache) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		cacheTTL:   cfg.CacheTTL,
	}
	if cache != nil && cfg.CacheTTL > 0 {
		c.cache = cache
	}
	return c
}

// Account 账户详情 GET /accounts/{address}
func (c *Client) Account(ctx context.Context, address string) (json.RawMessage, error) {
	return c.getByID(ctx, "accounts", address)
}

// Token 代币详情 GET /tokens/{identifier}
func (c *Client) Token(ctx context.Context, identifier string) (json.RawMessage, error) {
	return c.getByID(ctx, "tokens", identifier)
}

// NFT NFT 详情 GET /nfts/{identifier}
func (c *Client) NFT(ctx context.Context, identifier string) (json.RawMessage, error) {
	return c.getByID(ctx, "nfts", identifier)
}

// Stats 网络统计 GET /stats
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "stats", "/stats")
}

func (c *Client) getByID(ctx context.Context, endpoint, id string) (json.RawMessage, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%s: %w", endpoint, ErrEmptyArgument)
	}
	return c.get(ctx, endpoint, "/"+endpoint+"/"+url.PathEscape(id))
}

func (c *Client) get(ctx context.Context, endpoint, path string) (json.RawMessage, error) {
	if c.cache == nil {
		return c.fetch(ctx, endpoint, path)
	}
	return c.cache.GetOrLoad(ctx, "mvx"+path, c.cacheTTL, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, endpoint, path)
	})
}

func (c *Client) fetch(ctx context.Context, endpoint, path string) (body []byte, err error) {
	ctx, span := tracer.Start(ctx, "chainapi."+endpoint)
	span.SetAttributes(attribute.String("http.path", path))
	status := "error"
	defer func() {
		metrics.ChainAPIRequestTotal.WithLabelValues(endpoint, status).Inc()
		tracer.Finish(span, err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w%s", endpoint, path, ErrNotFound, errorBody(body))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%s request failed: status=%d%s", endpoint, resp.StatusCode, errorBody(body))
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s returned invalid json", endpoint)
	}
	return body, nil
}

// errorBody 错误响应体压缩为单行并截断，附在错误信息后供模型参考
func errorBody(body []byte) string {
	text := strings.Join(strings.Fields(strings.ToValidUTF8(string(body), "")), " ")
	if text == "" {
		return ""
	}
	if r := []rune(text); len(r) > maxErrorBodyRunes {
		text = string(r[:maxErrorBodyRunes]) + "..."
	}
	return ": " + text
}
