package agent

import (
	"context"
	"errors"
	"fmt"

	"mvx-assistant-api/internal/application/retrieval"
	"mvx-assistant-api/internal/application/tools"
)

var (
	// ErrReasoningUnavailable 推理能力调用失败
	ErrReasoningUnavailable = errors.New("reasoning unavailable")
	// ErrUnparsableOutput 推理输出无法解析为回答或工具请求
	ErrUnparsableOutput = errors.New("unparsable reasoning output")
	// ErrToolNotFound 请求的工具未注册
	ErrToolNotFound = tools.ErrToolNotFound
	// ErrEmptyQuery 问题为空
	ErrEmptyQuery = errors.New("query is empty")
)

// UnparsableOutputError 携带模型原始输出，供纠正提示回显
type UnparsableOutputError struct {
	Raw    string
	Reason string
}

func (e *UnparsableOutputError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnparsableOutput, e.Reason)
}

func (e *UnparsableOutputError) Unwrap() error { return ErrUnparsableOutput }

// ErrorKind 对外错误分类
type ErrorKind string

const (
	KindInvalidInput         ErrorKind = "invalid_input"
	KindReasoningUnavailable ErrorKind = "reasoning_unavailable"
	KindEmbeddingUnavailable ErrorKind = "embedding_unavailable"
	KindCanceled             ErrorKind = "canceled"
	KindInternal             ErrorKind = "internal"
)

const genericFailureMessage = "An error occurred while processing your request."

// AgentError 问答失败。内部细节只出现在 Error() 中，调用方展示 PublicMessage()。
type AgentError struct {
	Kind ErrorKind
	Err  error
}

func (e *AgentError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// PublicMessage 返回可直接展示给终端用户的说明
func (e *AgentError) PublicMessage() string {
	if e.Kind == KindInvalidInput {
		return "message is required"
	}
	return genericFailureMessage
}

func newAgentError(err error) *AgentError {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae
	}
	return &AgentError{Kind: classify(err), Err: err}
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return KindInvalidInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, retrieval.ErrEmbeddingUnavailable):
		return KindEmbeddingUnavailable
	case errors.Is(err, ErrReasoningUnavailable):
		return KindReasoningUnavailable
	default:
		return KindInternal
	}
}

// isFatalToolError 工具错误中 Embedding 不可用与上下文取消终止本次问答，其余作为观察结果回馈
func isFatalToolError(err error) bool {
	return errors.Is(err, retrieval.ErrEmbeddingUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
