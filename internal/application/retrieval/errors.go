package retrieval

import "errors"

var (
	// ErrInvalidConfiguration 切分参数或构建参数非法（启动期错误）。
	ErrInvalidConfiguration = errors.New("invalid retrieval configuration")

	// ErrIngestionFailed 所有语料来源均失败；当前索引保持不变。
	ErrIngestionFailed = errors.New("corpus ingestion failed")

	// ErrEmbeddingUnavailable Embedding 能力不可用或返回结果不合法。
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrDimensionMismatch 同一快照内向量维度不一致。
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyQuery 检索文本为空。
	ErrEmptyQuery = errors.New("query is empty")
)
