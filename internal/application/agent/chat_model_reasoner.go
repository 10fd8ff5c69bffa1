package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"mvx-assistant-api/internal/application/tools"
	"mvx-assistant-api/internal/domain/entity"
	"mvx-assistant-api/internal/workflow/node"
	"mvx-assistant-api/internal/workflow/port"
	"mvx-assistant-api/internal/workflow/prompt"
	"mvx-assistant-api/pkg/logger"
)

// ModelFactory 推理所需的最小 LLM 依赖
type ModelFactory = port.ChatModelFactory

// ChatModelReasoner 基于 Eino ChatModel 的推理能力。
// 优先使用原生工具绑定；提供商拒绝工具参数后切换为 JSON 文本协议。
type ChatModelReasoner struct {
	factory  ModelFactory
	prompts  *prompt.Registry
	provider string

	textOnly atomic.Bool
}

func NewChatModelReasoner(factory ModelFactory, prompts *prompt.Registry, provider string) *ChatModelReasoner {
	if prompts == nil {
		prompts = prompt.NewRegistry()
	}
	return &ChatModelReasoner{
		factory:  factory,
		prompts:  prompts,
		provider: provider,
	}
}

func (r *ChatModelReasoner) Reason(ctx context.Context, in *ReasonInput) (*Decision, error) {
	base, err := r.factory.Get(ctx, r.provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReasoningUnavailable, err)
	}

	if tcm, ok := base.(model.ToolCallingChatModel); ok && !r.textOnly.Load() {
		d, err := r.reasonWithTools(ctx, tcm, in)
		if err == nil || !node.IsToolsUnsupportedError(err) {
			return d, err
		}
		logger.Warn(ctx, "llm tools not supported, fallback to text protocol",
			"provider", r.provider,
			"error", err.Error(),
		)
		r.textOnly.Store(true)
	}
	return r.reasonWithText(ctx, base, in)
}

func (r *ChatModelReasoner) reasonWithTools(ctx context.Context, tcm model.ToolCallingChatModel, in *ReasonInput) (*Decision, error) {
	chatModel, err := tcm.WithTools(in.Tools)
	if err != nil {
		return nil, err
	}

	msgs, err := r.formatMessages(ctx, prompt.PromptAgentV1, in, nil)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, nativeScratchpad(in.Scratchpad)...)

	out, err := chatModel.Generate(ctx, msgs, model.WithTemperature(0))
	if err != nil {
		if node.IsToolsUnsupportedError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrReasoningUnavailable, err)
	}
	if out == nil {
		return nil, &UnparsableOutputError{Reason: "empty llm response"}
	}

	if len(out.ToolCalls) > 0 {
		call := out.ToolCalls[0]
		return &Decision{
			ToolName:     call.Function.Name,
			ToolArgument: argumentFromJSON(call.Function.Arguments),
			CallID:       call.ID,
		}, nil
	}
	if content := strings.TrimSpace(out.Content); content != "" {
		return &Decision{FinalAnswer: content}, nil
	}
	return nil, &UnparsableOutputError{Reason: "empty content without tool calls"}
}

func (r *ChatModelReasoner) reasonWithText(ctx context.Context, chatModel model.BaseChatModel, in *ReasonInput) (*Decision, error) {
	msgs, err := r.formatMessages(ctx, prompt.PromptAgentTextV1, in, map[string]any{
		"tools_block": toolsBlock(in.Tools),
	})
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, textScratchpad(in.Scratchpad)...)

	out, err := chatModel.Generate(ctx, msgs, textModelOptions(true)...)
	if err != nil && node.IsResponseFormatUnsupportedError(err) {
		logger.Warn(ctx, "llm json mode not supported, fallback to prompt-only",
			"provider", r.provider,
			"error", err.Error(),
		)
		out, err = chatModel.Generate(ctx, msgs, textModelOptions(false)...)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReasoningUnavailable, err)
	}
	if out == nil {
		return nil, &UnparsableOutputError{Reason: "empty llm response"}
	}
	return ParseTextDecision(out.Content)
}

func (r *ChatModelReasoner) formatMessages(ctx context.Context, id prompt.PromptID, in *ReasonInput, extra map[string]any) ([]*schema.Message, error) {
	tpl, err := r.prompts.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"question":        in.Query,
		prompt.HistoryKey: historyMessages(in.History),
	}
	for k, v := range extra {
		vars[k] = v
	}
	return tpl.Format(ctx, vars)
}

func textModelOptions(jsonMode bool) []model.Option {
	opts := []model.Option{model.WithTemperature(0)}
	if jsonMode {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{"type": "json_object"},
		}))
	}
	return opts
}

// textAction 文本协议的 JSON 动作
type textAction struct {
	Action      string          `json:"action"`
	ActionInput json.RawMessage `json:"action_input"`
	FinalAnswer string          `json:"final_answer"`
}

// ParseTextDecision 解析文本协议输出：{"action","action_input"} 或 {"final_answer"}
func ParseTextDecision(content string) (*Decision, error) {
	raw := node.ExtractJSONObject(content)
	var act textAction
	if err := json.Unmarshal([]byte(raw), &act); err != nil {
		return nil, &UnparsableOutputError{Raw: content, Reason: "reply is not a JSON object"}
	}
	if answer := strings.TrimSpace(act.FinalAnswer); answer != "" {
		return &Decision{FinalAnswer: answer}, nil
	}
	if name := strings.TrimSpace(act.Action); name != "" {
		return &Decision{ToolName: name, ToolArgument: argumentFromRaw(act.ActionInput)}, nil
	}
	return nil, &UnparsableOutputError{Raw: content, Reason: "neither action nor final_answer present"}
}

// argumentFromJSON 从原生工具调用参数中取出单字符串参数
func argumentFromJSON(args string) string {
	args = strings.TrimSpace(args)
	if args == "" {
		return ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(args), &obj); err != nil {
		return argumentFromRaw(json.RawMessage(args))
	}
	if v, ok := obj[tools.ArgumentKey]; ok {
		return argumentFromRaw(v)
	}
	if len(obj) == 1 {
		for _, v := range obj {
			return argumentFromRaw(v)
		}
	}
	if len(obj) == 0 {
		return ""
	}
	return args
}

func argumentFromRaw(v json.RawMessage) string {
	trimmed := strings.TrimSpace(string(v))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return trimmed
}

func historyMessages(turns []entity.ConversationTurn) []*schema.Message {
	out := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case entity.RoleUser:
			out = append(out, schema.UserMessage(t.Content))
		case entity.RoleAssistant:
			out = append(out, schema.AssistantMessage(t.Content, nil))
		}
	}
	return out
}

// nativeScratchpad 以 assistant tool_call + tool 消息对回放草稿区
func nativeScratchpad(steps []Step) []*schema.Message {
	out := make([]*schema.Message, 0, 2*len(steps))
	for _, s := range steps {
		if s.Kind == StepParseError {
			if s.RawOutput != "" {
				out = append(out, schema.AssistantMessage(s.RawOutput, nil))
			}
			out = append(out, schema.UserMessage(s.Observation))
			continue
		}
		args, _ := json.Marshal(map[string]string{tools.ArgumentKey: s.Argument})
		out = append(out,
			schema.AssistantMessage("", []schema.ToolCall{{
				ID:   s.CallID,
				Type: "function",
				Function: schema.FunctionCall{
					Name:      s.ToolName,
					Arguments: string(args),
				},
			}}),
			schema.ToolMessage(s.Observation, s.CallID),
		)
	}
	return out
}

// textScratchpad 以 JSON 动作 + "Observation:" 用户消息回放草稿区
func textScratchpad(steps []Step) []*schema.Message {
	out := make([]*schema.Message, 0, 2*len(steps))
	for _, s := range steps {
		if s.Kind == StepParseError {
			if s.RawOutput != "" {
				out = append(out, schema.AssistantMessage(s.RawOutput, nil))
			}
			out = append(out, schema.UserMessage(s.Observation))
			continue
		}
		action, _ := json.Marshal(map[string]string{"action": s.ToolName, "action_input": s.Argument})
		out = append(out,
			schema.AssistantMessage(string(action), nil),
			schema.UserMessage("Observation: "+s.Observation),
		)
	}
	return out
}

func toolsBlock(infos []*schema.ToolInfo) string {
	var b strings.Builder
	for i, info := range infos {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s", info.Name, info.Desc)
	}
	return b.String()
}
