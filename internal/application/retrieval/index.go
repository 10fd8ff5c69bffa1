package retrieval

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"mvx-assistant-api/internal/domain/entity"
	"mvx-assistant-api/pkg/metrics"
)

// Snapshot 一次构建产出的只读向量索引；发布后不再修改。
type Snapshot struct {
	segments  []entity.EmbeddedSegment
	dimension int
	runID     string
	builtAt   time.Time
}

// NewSnapshot 校验向量维度一致后创建快照。segments 的顺序即插入顺序。
func NewSnapshot(runID string, segments []entity.EmbeddedSegment) (*Snapshot, error) {
	dim := 0
	for idx := range segments {
		d := len(segments[idx].Vector)
		if d == 0 {
			return nil, fmt.Errorf("%w: segment %d of %s has an empty vector", ErrDimensionMismatch, segments[idx].SequenceIndex, segments[idx].SourceID)
		}
		if dim == 0 {
			dim = d
			continue
		}
		if d != dim {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dim, d)
		}
	}
	return &Snapshot{
		segments:  segments,
		dimension: dim,
		runID:     runID,
		builtAt:   time.Now(),
	}, nil
}

// Len 切片数量
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.segments)
}

// Dimension 向量维度（空快照为 0）
func (s *Snapshot) Dimension() int {
	if s == nil {
		return 0
	}
	return s.dimension
}

func (s *Snapshot) RunID() string      { return s.runID }
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Search 返回与 query 余弦相似度最高的 k 个切片，降序；同分按插入顺序。
func (s *Snapshot) Search(query []float32, k int) []Hit {
	if s.Len() == 0 || k <= 0 {
		return []Hit{}
	}
	start := time.Now()
	defer func() { metrics.VectorSearchDuration.Observe(time.Since(start).Seconds()) }()

	hits := make([]Hit, len(s.segments))
	for idx := range s.segments {
		hits[idx] = Hit{
			Segment: s.segments[idx].Segment,
			Score:   CosineSimilarity(query, s.segments[idx].Vector),
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// CosineSimilarity 余弦相似度；任一向量模为 0 或长度不一致时返回 0。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// 浮点误差可能略微越界
	return math.Max(-1, math.Min(1, sim))
}

// Index 当前生效快照的持有者：单写多读，整体替换。
type Index struct {
	current atomic.Pointer[Snapshot]
}

// NewIndex 创建空索引（尚未构建）
func NewIndex() *Index {
	return &Index{}
}

// Snapshot 返回当前快照；从未构建时返回 nil。
func (i *Index) Snapshot() *Snapshot {
	return i.current.Load()
}

// Publish 原子替换当前快照，返回旧快照。
func (i *Index) Publish(s *Snapshot) *Snapshot {
	prev := i.current.Swap(s)
	metrics.IndexSegments.Set(float64(s.Len()))
	return prev
}
