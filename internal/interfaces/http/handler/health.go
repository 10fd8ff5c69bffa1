package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mvx-assistant-api/internal/application/retrieval"
)

// Pinger 可探活的外部依赖
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// SnapshotSource 提供当前索引快照
type SnapshotSource interface {
	Snapshot() *retrieval.Snapshot
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version string
	redis   Pinger
	index   SnapshotSource
}

// NewHealthHandler 创建健康检查处理器；redis 为 nil 表示未启用缓存
func NewHealthHandler(version string, redis Pinger, index SnapshotSource) *HealthHandler {
	return &HealthHandler{
		version: version,
		redis:   redis,
		index:   index,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Detail    any    `json:"detail,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready 就绪检查接口：索引未就绪或 Redis 不可用时返回 503
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"redis": {Status: "disabled"},
		"index": {Status: "unknown"},
	}
	ready := true

	// Redis（可选，启用后必须可用）
	if h.redis != nil {
		start := time.Now()
		err := h.redis.HealthCheck(ctx)
		checks["redis"].LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			checks["redis"].Status = "error"
			checks["redis"].Error = err.Error()
			ready = false
		} else {
			checks["redis"].Status = "ok"
		}
	}

	// 索引
	var snap *retrieval.Snapshot
	if h.index != nil {
		snap = h.index.Snapshot()
	}
	if snap.Len() == 0 {
		checks["index"].Status = "not_built"
		ready = false
	} else {
		checks["index"].Status = "ok"
		checks["index"].Detail = gin.H{
			"run_id":   snap.RunID(),
			"segments": snap.Len(),
		}
	}

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
