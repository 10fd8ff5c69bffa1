package dto

import (
	"time"

	"mvx-assistant-api/internal/application/retrieval"
)

// SearchRequest 检索调试请求
type SearchRequest struct {
	Query string `json:"query" binding:"required,max=5000"`
	TopK  int    `json:"top_k,omitempty"`
}

// ContextSegment 上下文片段
type ContextSegment struct {
	Text          string  `json:"text"`
	SourceID      string  `json:"source_id"`
	SequenceIndex int     `json:"sequence_index"`
	Score         float64 `json:"score"`
}

// SearchResponse 检索响应
type SearchResponse struct {
	Segments []*ContextSegment `json:"segments"`
	RunID    string            `json:"run_id,omitempty"`
}

// NewSearchResponse 由检索命中构造响应
func NewSearchResponse(hits []retrieval.Hit, runID string) *SearchResponse {
	segs := make([]*ContextSegment, 0, len(hits))
	for _, h := range hits {
		segs = append(segs, &ContextSegment{
			Text:          h.Segment.Text,
			SourceID:      h.Segment.SourceID,
			SequenceIndex: h.Segment.SequenceIndex,
			Score:         h.Score,
		})
	}
	return &SearchResponse{Segments: segs, RunID: runID}
}

// CorpusStatusResponse 当前索引快照状态
type CorpusStatusResponse struct {
	Ready      bool                    `json:"ready"`
	RunID      string                  `json:"run_id,omitempty"`
	Segments   int                     `json:"segments"`
	Dimension  int                     `json:"dimension"`
	BuiltAt    string                  `json:"built_at,omitempty"`
	LastReport *retrieval.IngestReport `json:"last_report,omitempty"`
	LastStatus string                  `json:"last_status,omitempty"`
}

// NewCorpusStatusResponse 由快照与最近一次构建报告构造响应；快照可为空
func NewCorpusStatusResponse(snap *retrieval.Snapshot, report *retrieval.IngestReport) *CorpusStatusResponse {
	resp := &CorpusStatusResponse{LastReport: report}
	if report != nil {
		resp.LastStatus = report.Status()
	}
	if snap != nil && snap.Len() > 0 {
		resp.Ready = true
		resp.RunID = snap.RunID()
		resp.Segments = snap.Len()
		resp.Dimension = snap.Dimension()
		resp.BuiltAt = snap.BuiltAt().UTC().Format(time.RFC3339)
	}
	return resp
}
