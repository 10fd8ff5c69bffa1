package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"mvx-assistant-api/internal/domain/entity"
	"mvx-assistant-api/pkg/logger"
	"mvx-assistant-api/pkg/metrics"
	"mvx-assistant-api/pkg/tracer"
)

const (
	defaultEmbeddingBatch   = 32
	defaultFetchConcurrency = 4

	rebuildKey = "rebuild"
)

// IndexerConfig 构建参数
type IndexerConfig struct {
	Sources          []string
	ChunkSize        int
	ChunkOverlap     int
	BatchSize        int
	FetchConcurrency int
	// Publisher 为 nil 时不投递构建报告
	Publisher ReportPublisher
}

// Indexer 语料构建器：抓取 -> 切分 -> 向量化 -> 原子发布。
// 同一时刻至多一次构建，重叠的触发共享同一次结果。
type Indexer struct {
	fetcher   SourceFetcher
	embedder  embedding.Embedder
	chunker   *Chunker
	index     *Index
	publisher ReportPublisher

	sources          []string
	batchSize        int
	fetchConcurrency int

	group      singleflight.Group
	lastReport atomic.Pointer[IngestReport]
}

func NewIndexer(fetcher SourceFetcher, embedder embedding.Embedder, index *Index, cfg IndexerConfig) (*Indexer, error) {
	if fetcher == nil || embedder == nil || index == nil {
		return nil, fmt.Errorf("%w: fetcher, embedder and index are required", ErrInvalidConfiguration)
	}
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	sources := make([]string, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no corpus sources configured", ErrInvalidConfiguration)
	}
	bs := cfg.BatchSize
	if bs <= 0 {
		bs = defaultEmbeddingBatch
	}
	fc := cfg.FetchConcurrency
	if fc <= 0 {
		fc = defaultFetchConcurrency
	}
	return &Indexer{
		fetcher:          fetcher,
		embedder:         embedder,
		chunker:          chunker,
		index:            index,
		publisher:        cfg.Publisher,
		sources:          sources,
		batchSize:        bs,
		fetchConcurrency: fc,
	}, nil
}

// Index 返回被维护的索引
func (i *Indexer) Index() *Index { return i.index }

// Snapshot 当前发布的快照；尚未构建时为 nil
func (i *Indexer) Snapshot() *Snapshot { return i.index.Snapshot() }

// LastReport 最近一次构建报告（含失败的构建）；从未构建时为 nil。
func (i *Indexer) LastReport() *IngestReport { return i.lastReport.Load() }

// EnsureIndex 返回当前快照；尚未构建时触发一次构建。
func (i *Indexer) EnsureIndex(ctx context.Context) (*Snapshot, error) {
	if s := i.index.Snapshot(); s != nil {
		return s, nil
	}
	if _, err := i.Rebuild(ctx); err != nil {
		return nil, err
	}
	return i.index.Snapshot(), nil
}

// Rebuild 触发一次构建。正在进行的构建会被复用；调用方 ctx 取消只影响等待，
// 不会中断共享的构建。
func (i *Indexer) Rebuild(ctx context.Context) (*IngestReport, error) {
	ch := i.group.DoChan(rebuildKey, func() (any, error) {
		return i.build(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		report, _ := res.Val.(*IngestReport)
		return report, res.Err
	}
}

// RunPeriodic 按 interval 周期重建，直到 ctx 结束。interval <= 0 时立即返回。
func (i *Indexer) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := i.Rebuild(ctx); err != nil && ctx.Err() == nil {
				logger.Error(ctx, "periodic corpus refresh failed", err)
			}
		}
	}
}

type fetchedSource struct {
	text string
	err  error
}

func (i *Indexer) build(ctx context.Context) (report *IngestReport, err error) {
	runID := uuid.NewString()
	ctx = logger.WithContext(ctx, logger.RunIDKey, runID)
	ctx, span := tracer.Start(ctx, "retrieval.Indexer.build")
	defer func() { tracer.Finish(span, err) }()

	report = &IngestReport{
		RunID:     runID,
		Sources:   len(i.sources),
		StartedAt: time.Now(),
	}
	defer func() {
		if err != nil {
			report.Error = err.Error()
		}
		report.Duration = time.Since(report.StartedAt)
		i.lastReport.Store(report)
		metrics.IngestionTotal.WithLabelValues(report.Status()).Inc()
		metrics.IngestionDuration.Observe(report.Duration.Seconds())
		i.publish(ctx, report)
	}()

	// 1) 并发抓取；单个来源失败只记录不中断
	fetched := make([]fetchedSource, len(i.sources))
	var g errgroup.Group
	g.SetLimit(i.fetchConcurrency)
	for idx, src := range i.sources {
		g.Go(func() error {
			text, ferr := i.fetcher.Fetch(ctx, src)
			if ferr == nil && strings.TrimSpace(text) == "" {
				ferr = errors.New("no extractable text")
			}
			fetched[idx] = fetchedSource{text: text, err: ferr}
			return nil
		})
	}
	_ = g.Wait()

	// 2) 按来源顺序切分，保证插入顺序稳定
	var segments []entity.Segment
	for idx, src := range i.sources {
		if ferr := fetched[idx].err; ferr != nil {
			report.Failed = append(report.Failed, SourceFailure{SourceID: src, Reason: ferr.Error()})
			metrics.IngestionSourceFailures.Inc()
			logger.Warn(ctx, "corpus source skipped", "source", src, "error", ferr.Error())
			continue
		}
		report.Succeeded = append(report.Succeeded, src)
		for seg := range i.chunker.Split(src, fetched[idx].text) {
			segments = append(segments, seg)
		}
	}
	if len(report.Succeeded) == 0 {
		return report, fmt.Errorf("%w: all %d sources failed", ErrIngestionFailed, len(i.sources))
	}

	// 3) 批量向量化
	embedded, err := i.embedSegments(ctx, segments)
	if err != nil {
		return report, err
	}

	// 4) 组装新快照并原子发布
	snap, err := NewSnapshot(runID, embedded)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	i.index.Publish(snap)
	report.Segments = snap.Len()
	report.Dimension = snap.Dimension()

	logger.Info(ctx, "corpus index published",
		"sources", report.Sources,
		"failed", len(report.Failed),
		"segments", report.Segments,
		"dimension", report.Dimension,
	)
	return report, nil
}

func (i *Indexer) publish(ctx context.Context, report *IngestReport) {
	if i.publisher == nil {
		return
	}
	if err := i.publisher.PublishIngestReport(ctx, report); err != nil {
		logger.Warn(ctx, "publish ingest report failed", "error", err.Error())
	}
}

func (i *Indexer) embedSegments(ctx context.Context, segments []entity.Segment) ([]entity.EmbeddedSegment, error) {
	texts := make([]string, len(segments))
	for idx := range segments {
		texts[idx] = segments[idx].Text
	}
	vectors, err := embedBatch(ctx, i.embedder, texts, i.batchSize)
	if err != nil {
		return nil, err
	}
	out := make([]entity.EmbeddedSegment, len(segments))
	for idx := range segments {
		out[idx] = entity.EmbeddedSegment{Segment: segments[idx], Vector: vectors[idx]}
	}
	return out, nil
}

// embedBatch 分批调用 embedder，并保证输出与输入一一对应。
func embedBatch(ctx context.Context, embedder embedding.Embedder, texts []string, batchSize int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = defaultEmbeddingBatch
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		v64, err := embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
		}
		if len(v64) != end-start {
			return nil, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingUnavailable, end-start, len(v64))
		}
		for _, vec := range v64 {
			f32 := make([]float32, len(vec))
			for k, x := range vec {
				f32[k] = float32(x)
			}
			out = append(out, f32)
		}
	}
	return out, nil
}
