// Package port 定义工作流对基础设施的最小依赖
package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 按提供商名称获取 ChatModel；空名称表示默认提供商。
// 返回的模型若实现 model.ToolCallingChatModel，推理侧优先使用原生工具调用。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}
