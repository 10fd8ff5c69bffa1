package retrieval

import (
	"time"

	"mvx-assistant-api/internal/domain/entity"
)

// Hit 检索命中
type Hit struct {
	Segment entity.Segment
	Score   float64
}

// SourceFailure 单个来源的失败记录
type SourceFailure struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

// IngestReport 一次语料构建的结果。Error 非空表示本次构建失败，旧快照保持不变。
type IngestReport struct {
	RunID     string          `json:"run_id"`
	Sources   int             `json:"sources"`
	Succeeded []string        `json:"succeeded"`
	Failed    []SourceFailure `json:"failed"`
	Segments  int             `json:"segments"`
	Dimension int             `json:"dimension"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Error     string          `json:"error,omitempty"`
}

// Partial 部分来源失败但构建成功
func (r *IngestReport) Partial() bool {
	return r != nil && r.Error == "" && len(r.Failed) > 0 && len(r.Succeeded) > 0
}

// Status 用于指标与日志的构建状态
func (r *IngestReport) Status() string {
	switch {
	case r == nil || r.Error != "" || len(r.Succeeded) == 0:
		return "failed"
	case len(r.Failed) > 0:
		return "partial"
	default:
		return "success"
	}
}
