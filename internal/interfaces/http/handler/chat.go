// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mvx-assistant-api/internal/application/agent"
	"mvx-assistant-api/internal/domain/entity"
	"mvx-assistant-api/internal/interfaces/http/dto"
	apperrors "mvx-assistant-api/pkg/errors"
	"mvx-assistant-api/pkg/logger"
)

// Answerer 问答编排能力
type Answerer interface {
	Answer(ctx context.Context, query string, history []entity.ConversationTurn) (*agent.Answer, error)
}

// ChatHandler 问答处理器
type ChatHandler struct {
	answerer Answerer
	timeout  time.Duration
}

// NewChatHandler 创建问答处理器；timeout <= 0 表示不额外限制
func NewChatHandler(answerer Answerer, timeout time.Duration) *ChatHandler {
	return &ChatHandler{answerer: answerer, timeout: timeout}
}

// Simple 兼容聊天前端的简单接口
// @Summary 问答
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body dto.ChatRequest true "问答请求"
// @Success 200 {object} dto.SimpleChatResponse
// @Failure 400 {object} dto.SimpleChatError
// @Failure 500 {object} dto.SimpleChatError
// @Router /api/chat [post]
func (h *ChatHandler) Simple(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, dto.SimpleChatError{Error: "message is required"})
		return
	}

	ans, err := h.answer(c, &req)
	if err != nil {
		status, msg := publicError(err)
		if status != http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		c.JSON(status, dto.SimpleChatError{Error: msg})
		return
	}
	c.JSON(http.StatusOK, dto.SimpleChatResponse{Response: ans.Text})
}

// Chat 带编排元数据的问答接口
// @Summary 问答（含轮次与工具调用记录）
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body dto.ChatRequest true "问答请求"
// @Param steps query bool false "是否返回工具调用记录"
// @Success 200 {object} dto.Response[dto.ChatResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		dto.BadRequest(c, "message is required")
		return
	}

	ans, err := h.answer(c, &req)
	if err != nil {
		status, msg := publicError(err)
		detail := &dto.ErrorDetail{ErrorCode: string(errorCode(err))}
		dto.ErrorWithDetail(c, status, msg, detail)
		return
	}
	dto.Success(c, dto.NewChatResponse(ans, c.Query("steps") == "true"))
}

func (h *ChatHandler) answer(c *gin.Context, req *dto.ChatRequest) (*agent.Answer, error) {
	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	ans, err := h.answerer.Answer(ctx, req.Message, req.Turns())
	if err != nil {
		logger.Warn(ctx, "chat request failed", "error", err.Error())
		return nil, err
	}
	return ans, nil
}

// publicError 映射为对外状态码与提示；内部细节不出现在响应中
func publicError(err error) (int, string) {
	var ae *agent.AgentError
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, apperrors.ErrAnswerFailed.Message
	}
	switch ae.Kind {
	case agent.KindInvalidInput:
		return http.StatusBadRequest, ae.PublicMessage()
	case agent.KindCanceled:
		return http.StatusGatewayTimeout, ae.PublicMessage()
	case agent.KindReasoningUnavailable, agent.KindEmbeddingUnavailable:
		return http.StatusServiceUnavailable, ae.PublicMessage()
	default:
		return http.StatusInternalServerError, ae.PublicMessage()
	}
}

func errorCode(err error) apperrors.ErrorCode {
	var ae *agent.AgentError
	if !errors.As(err, &ae) {
		return apperrors.CodeAnswerFailed
	}
	switch ae.Kind {
	case agent.KindInvalidInput:
		return apperrors.CodeInvalidParam
	case agent.KindCanceled:
		return apperrors.CodeTimeout
	case agent.KindReasoningUnavailable:
		return apperrors.CodeLLMCallFailed
	case agent.KindEmbeddingUnavailable:
		return apperrors.CodeEmbeddingFailed
	default:
		return apperrors.CodeAnswerFailed
	}
}
