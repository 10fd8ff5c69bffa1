package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mvx-assistant-api/internal/application/retrieval"
	"mvx-assistant-api/internal/interfaces/http/dto"
	apperrors "mvx-assistant-api/pkg/errors"
	"mvx-assistant-api/pkg/logger"
)

// CorpusIndexer 语料索引的维护能力
type CorpusIndexer interface {
	Rebuild(ctx context.Context) (*retrieval.IngestReport, error)
	LastReport() *retrieval.IngestReport
	Snapshot() *retrieval.Snapshot
}

// CorpusSearcher 检索调试所需能力
type CorpusSearcher interface {
	SearchK(ctx context.Context, query string, k int) ([]retrieval.Hit, error)
	TopK() int
}

// CorpusHandler 语料与检索处理器
type CorpusHandler struct {
	indexer  CorpusIndexer
	searcher CorpusSearcher
}

func NewCorpusHandler(indexer CorpusIndexer, searcher CorpusSearcher) *CorpusHandler {
	return &CorpusHandler{indexer: indexer, searcher: searcher}
}

// Status 当前快照与最近一次构建报告
// @Summary 语料索引状态
// @Tags Corpus
// @Produce json
// @Success 200 {object} dto.Response[dto.CorpusStatusResponse]
// @Router /v1/corpus/status [get]
func (h *CorpusHandler) Status(c *gin.Context) {
	dto.Success(c, dto.NewCorpusStatusResponse(h.indexer.Snapshot(), h.indexer.LastReport()))
}

// Refresh 同步重建语料索引；失败时保留旧快照
// @Summary 刷新语料索引
// @Tags Corpus
// @Produce json
// @Success 200 {object} dto.Response[dto.CorpusStatusResponse]
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/corpus/refresh [post]
func (h *CorpusHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	report, err := h.indexer.Rebuild(ctx)
	if err != nil {
		logger.Error(ctx, "corpus refresh failed", err)
		detail := &dto.ErrorDetail{ErrorCode: string(apperrors.CodeIngestionFailed)}
		if report != nil {
			detail.Details = report.Status()
		}
		dto.ErrorWithDetail(c, http.StatusServiceUnavailable, apperrors.ErrIngestionFailed.Message, detail)
		return
	}
	dto.Success(c, dto.NewCorpusStatusResponse(h.indexer.Snapshot(), report))
}

// Search 检索调试
// @Summary 检索上下文
// @Tags Retrieval
// @Accept json
// @Produce json
// @Param body body dto.SearchRequest true "检索请求"
// @Success 200 {object} dto.Response[dto.SearchResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/retrieval/search [post]
func (h *CorpusHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "query is required")
		return
	}
	k := req.TopK
	if k <= 0 {
		k = h.searcher.TopK()
	}

	ctx := c.Request.Context()
	hits, err := h.searcher.SearchK(ctx, req.Query, k)
	switch {
	case err == nil:
	case errors.Is(err, retrieval.ErrEmptyQuery):
		dto.BadRequest(c, "query is required")
		return
	case errors.Is(err, retrieval.ErrEmbeddingUnavailable):
		logger.Warn(ctx, "retrieval unavailable", "error", err.Error())
		dto.ErrorWithDetail(c, http.StatusServiceUnavailable, apperrors.ErrServiceUnavailable.Message,
			&dto.ErrorDetail{ErrorCode: string(apperrors.CodeEmbeddingFailed)})
		return
	case errors.Is(err, retrieval.ErrIngestionFailed):
		logger.Warn(ctx, "retrieval unavailable", "error", err.Error())
		dto.ErrorWithDetail(c, http.StatusServiceUnavailable, apperrors.ErrServiceUnavailable.Message,
			&dto.ErrorDetail{ErrorCode: string(apperrors.CodeIngestionFailed)})
		return
	default:
		logger.Error(ctx, "retrieval failed", err)
		dto.ErrorWithDetail(c, http.StatusInternalServerError, apperrors.ErrRetrievalFailed.Message,
			&dto.ErrorDetail{ErrorCode: string(apperrors.CodeRetrievalFailed)})
		return
	}

	var runID string
	if snap := h.indexer.Snapshot(); snap != nil {
		runID = snap.RunID()
	}
	dto.Success(c, dto.NewSearchResponse(hits, runID))
}
