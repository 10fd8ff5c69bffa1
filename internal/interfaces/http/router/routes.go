package router

import (
	"github.com/gin-gonic/gin"

	"mvx-assistant-api/internal/interfaces/http/handler"
)

// RegisterAPIRoutes 注册聊天前端使用的兼容路由
func RegisterAPIRoutes(api *gin.RouterGroup, chatHandler *handler.ChatHandler) {
	api.POST("/chat", chatHandler.Simple)
}

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	chatHandler *handler.ChatHandler,
	corpusHandler *handler.CorpusHandler,
) {
	// 问答
	v1.POST("/chat", chatHandler.Chat)

	// 语料管理
	corpus := v1.Group("/corpus")
	{
		corpus.GET("/status", corpusHandler.Status)
		corpus.POST("/refresh", corpusHandler.Refresh)
	}

	// 检索调试
	retrieval := v1.Group("/retrieval")
	{
		retrieval.POST("/search", corpusHandler.Search)
	}
}
