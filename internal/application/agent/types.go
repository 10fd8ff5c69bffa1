// Package agent 实现问答编排：推理与工具调用交替进行，直至给出最终回答或耗尽轮次预算。
package agent

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"mvx-assistant-api/internal/domain/entity"
)

// Outcome 一次问答的结束方式
type Outcome string

const (
	OutcomeCompleted             Outcome = "completed"
	OutcomeMaxIterationsExceeded Outcome = "max_iterations_exceeded"
)

// StepKind 草稿区中一步的类型
type StepKind string

const (
	StepToolResult   StepKind = "tool_result"
	StepToolNotFound StepKind = "tool_not_found"
	StepToolFailed   StepKind = "tool_failed"
	StepParseError   StepKind = "parse_error"
)

// Step 草稿区记录：一次工具调用的观察结果，或一次解析失败后的纠正提示
type Step struct {
	Kind        StepKind `json:"kind"`
	CallID      string   `json:"call_id,omitempty"`
	ToolName    string   `json:"tool,omitempty"`
	Argument    string   `json:"argument,omitempty"`
	Observation string   `json:"observation"`
	// RawOutput 解析失败时模型的原始输出
	RawOutput string `json:"raw_output,omitempty"`
}

// ReasonInput 推理能力的输入
type ReasonInput struct {
	Query      string
	Tools      []*schema.ToolInfo
	History    []entity.ConversationTurn
	Scratchpad []Step
}

// Decision 推理结果：要么是最终回答，要么是一次工具请求
type Decision struct {
	FinalAnswer  string
	ToolName     string
	ToolArgument string
	// CallID 原生工具调用的 ID，文本协议下由编排器生成
	CallID string
}

// IsToolCall 是否请求调用工具
func (d *Decision) IsToolCall() bool {
	return d != nil && d.ToolName != ""
}

// Reasoner 推理能力。输出无法解析时返回包装 ErrUnparsableOutput 的错误（推荐 *UnparsableOutputError）。
type Reasoner interface {
	Reason(ctx context.Context, in *ReasonInput) (*Decision, error)
}

// ReasonerFunc 将普通函数适配为 Reasoner
type ReasonerFunc func(ctx context.Context, in *ReasonInput) (*Decision, error)

func (f ReasonerFunc) Reason(ctx context.Context, in *ReasonInput) (*Decision, error) {
	return f(ctx, in)
}

// Answer 问答结果
type Answer struct {
	Text    string  `json:"text"`
	Outcome Outcome `json:"outcome"`
	// Rounds 推理与工具执行（或纠正）往返的次数
	Rounds int    `json:"rounds"`
	Steps  []Step `json:"steps,omitempty"`
}
