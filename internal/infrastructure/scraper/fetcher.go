// Package scraper 抓取语料来源页面并提取正文
package scraper

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"mvx-assistant-api/internal/application/retrieval"
	"mvx-assistant-api/internal/config"
	"mvx-assistant-api/pkg/logger"
	"mvx-assistant-api/pkg/tracer"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxBodyBytes = 4 << 20
	defaultUserAgent    = "mvx-assistant-api/1.0"
)

// Fetcher 基于 HTTP 的语料抓取器，实现 retrieval.SourceFetcher
type Fetcher struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
}

var _ retrieval.SourceFetcher = (*Fetcher)(nil)

func NewFetcher(cfg *config.CorpusConfig) *Fetcher {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Fetcher{
		httpClient:   &http.Client{Timeout: timeout},
		userAgent:    ua,
		maxBodyBytes: maxBody,
	}
}

// Fetch 下载 sourceID 指向的页面并返回正文纯文本
func (f *Fetcher) Fetch(ctx context.Context, sourceID string) (text string, err error) {
	ctx, span := tracer.Start(ctx, "scraper.Fetch")
	span.SetAttributes(attribute.String("source", sourceID))
	defer func() { tracer.Finish(span, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", sourceID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: HTTP %d", sourceID, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, f.maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", sourceID, err)
		}
		text = strings.Join(strings.Fields(string(raw)), " ")
	} else {
		text, err = ExtractText(body)
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", sourceID, err)
		}
	}
	// 非 UTF-8 编码的页面丢弃非法字节
	text = strings.ToValidUTF8(text, "")

	logger.Debug(ctx, "corpus source fetched",
		"source", sourceID,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}
