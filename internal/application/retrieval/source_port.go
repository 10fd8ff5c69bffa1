package retrieval

import "context"

// SourceFetcher 定义应用层对“语料来源抓取”的最小依赖（port）。
// 由基础设施层提供具体实现（HTTP 抓取 + HTML 正文提取）。
// 返回值为已去除标记、折叠空白后的纯文本。
type SourceFetcher interface {
	Fetch(ctx context.Context, sourceID string) (string, error)
}

// ReportPublisher 构建报告的外部投递（可选）。投递失败只记录日志，不影响构建结果。
type ReportPublisher interface {
	PublishIngestReport(ctx context.Context, report *IngestReport) error
}
