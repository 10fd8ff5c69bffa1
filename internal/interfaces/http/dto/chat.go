package dto

import (
	"mvx-assistant-api/internal/application/agent"
	"mvx-assistant-api/internal/domain/entity"
)

// ChatTurn 历史对话轮次
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 问答请求
type ChatRequest struct {
	Message string     `json:"message"`
	History []ChatTurn `json:"history,omitempty"`
}

// Turns 转换为领域对象，非法角色或空内容的轮次直接丢弃
func (r *ChatRequest) Turns() []entity.ConversationTurn {
	if r == nil || len(r.History) == 0 {
		return nil
	}
	out := make([]entity.ConversationTurn, 0, len(r.History))
	for _, h := range r.History {
		t := entity.ConversationTurn{Role: entity.Role(h.Role), Content: h.Content}
		if !t.Valid() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SimpleChatResponse /api/chat 响应
type SimpleChatResponse struct {
	Response string `json:"response"`
}

// SimpleChatError /api/chat 错误响应
type SimpleChatError struct {
	Error string `json:"error"`
}

// ChatStep 一次工具调用或纠正记录
type ChatStep struct {
	Kind        string `json:"kind"`
	Tool        string `json:"tool,omitempty"`
	Argument    string `json:"argument,omitempty"`
	Observation string `json:"observation,omitempty"`
}

// ChatResponse /v1/chat 响应
type ChatResponse struct {
	Answer  string     `json:"answer"`
	Outcome string     `json:"outcome"`
	Rounds  int        `json:"rounds"`
	Steps   []ChatStep `json:"steps,omitempty"`
}

// NewChatResponse 由编排结果构造响应
func NewChatResponse(ans *agent.Answer, includeSteps bool) *ChatResponse {
	resp := &ChatResponse{
		Answer:  ans.Text,
		Outcome: string(ans.Outcome),
		Rounds:  ans.Rounds,
	}
	if !includeSteps {
		return resp
	}
	resp.Steps = make([]ChatStep, 0, len(ans.Steps))
	for _, s := range ans.Steps {
		resp.Steps = append(resp.Steps, ChatStep{
			Kind:        string(s.Kind),
			Tool:        s.ToolName,
			Argument:    s.Argument,
			Observation: s.Observation,
		})
	}
	return resp
}
