package retrieval

import (
	"fmt"
	"iter"

	"mvx-assistant-api/internal/domain/entity"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker 按字符（rune）切分文本，相邻切片重叠 overlap 个字符。
type Chunker struct {
	size    int
	overlap int
}

// NewChunker 创建切分器；要求 size > 0 且 0 <= overlap < size。
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidConfiguration, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size 返回最大切片长度
func (c *Chunker) Size() int { return c.size }

// Overlap 返回相邻切片重叠长度
func (c *Chunker) Overlap() int { return c.overlap }

// Step 相邻切片起点间距
func (c *Chunker) Step() int { return c.size - c.overlap }

// Split 惰性切分 text；序列可重复遍历，空文本不产出任何切片。
// 最后一个切片恰好结束于文本末尾。
func (c *Chunker) Split(sourceID, text string) iter.Seq[entity.Segment] {
	return func(yield func(entity.Segment) bool) {
		if text == "" {
			return
		}
		// 按字符起始字节切原文；非法 UTF-8 字节各占一个字符，拼接仍与原文逐字节一致
		offsets := make([]int, 0, len(text))
		for i := range text {
			offsets = append(offsets, i)
		}
		offsets = append(offsets, len(text))
		n := len(offsets) - 1
		step := c.Step()
		for seq, start := 0, 0; ; seq, start = seq+1, start+step {
			end := min(start+c.size, n)
			if !yield(entity.Segment{
				Text:          text[offsets[start]:offsets[end]],
				SourceID:      sourceID,
				SequenceIndex: seq,
			}) {
				return
			}
			if end >= n {
				return
			}
		}
	}
}
