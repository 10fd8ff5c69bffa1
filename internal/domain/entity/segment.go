package entity

// Segment 语料切片：来源文档中一段连续文本
type Segment struct {
	Text          string `json:"text"`
	SourceID      string `json:"source_id"`
	SequenceIndex int    `json:"sequence_index"`
}

// EmbeddedSegment 带向量的语料切片
type EmbeddedSegment struct {
	Segment
	Vector []float32 `json:"-"`
}

// Dimension 返回向量维度
func (s *EmbeddedSegment) Dimension() int {
	if s == nil {
		return 0
	}
	return len(s.Vector)
}
