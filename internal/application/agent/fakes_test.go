package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"mvx-assistant-api/internal/application/retrieval"
	"mvx-assistant-api/internal/application/tools"
	"mvx-assistant-api/internal/domain/entity"
)

// scriptedReasoner 按脚本逐步返回决策，脚本用尽后重复最后一步
type scriptedReasoner struct {
	mu    sync.Mutex
	steps []func(in *ReasonInput) (*Decision, error)
	seen  []ReasonInput
}

func script(steps ...func(in *ReasonInput) (*Decision, error)) *scriptedReasoner {
	return &scriptedReasoner{steps: steps}
}

func (s *scriptedReasoner) Reason(_ context.Context, in *ReasonInput) (*Decision, error) {
	s.mu.Lock()
	idx := min(len(s.seen), len(s.steps)-1)
	snapshot := *in
	snapshot.Scratchpad = append([]Step(nil), in.Scratchpad...)
	s.seen = append(s.seen, snapshot)
	s.mu.Unlock()
	return s.steps[idx](in)
}

func (s *scriptedReasoner) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func final(text string) func(*ReasonInput) (*Decision, error) {
	return func(*ReasonInput) (*Decision, error) { return &Decision{FinalAnswer: text}, nil }
}

func callTool(name, arg string) func(*ReasonInput) (*Decision, error) {
	return func(*ReasonInput) (*Decision, error) {
		return &Decision{ToolName: name, ToolArgument: arg}, nil
	}
}

func fail(err error) func(*ReasonInput) (*Decision, error) {
	return func(*ReasonInput) (*Decision, error) { return nil, err }
}

type fakeChain struct {
	err error
}

func (f *fakeChain) Account(_ context.Context, address string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"address":"` + address + `","balance":"42000000000000000000","nonce":7}`), nil
}

func (f *fakeChain) Token(_ context.Context, id string) (json.RawMessage, error) {
	return json.RawMessage(`{"identifier":"` + id + `","decimals":18}`), f.err
}

func (f *fakeChain) NFT(_ context.Context, id string) (json.RawMessage, error) {
	return json.RawMessage(`{"identifier":"` + id + `"}`), f.err
}

func (f *fakeChain) Stats(context.Context) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"shards":3,"blocks":19876543,"accounts":4100000}`), nil
}

type fakeSearcher struct {
	texts []string
	err   error
}

func (f *fakeSearcher) Search(context.Context, string) ([]retrieval.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	hits := make([]retrieval.Hit, len(f.texts))
	for i, t := range f.texts {
		hits[i] = retrieval.Hit{Segment: entity.Segment{Text: t, SourceID: "https://multiversx.com"}, Score: 1}
	}
	return hits, nil
}

func newRegistry(t *testing.T, chain *fakeChain, s *fakeSearcher) *tools.Registry {
	t.Helper()
	r, err := tools.NewRegistry(
		tools.NewAccountTool(chain),
		tools.NewTokenTool(chain),
		tools.NewNFTTool(chain),
		tools.NewNetworkStatsTool(chain),
		tools.NewWebsiteInfoTool(s),
	)
	require.NoError(t, err)
	return r
}

// fakeChatModel 按顺序返回预设回复；绑定工具后的实例共享同一脚本
type fakeChatModel struct {
	mu       sync.Mutex
	replies  []reply
	requests [][]*schema.Message
	bound    []*schema.ToolInfo
	// toolsErr 非空时，绑定了工具的实例调用 Generate 直接返回该错误
	toolsErr   error
	toolsCalls int
}

type reply struct {
	msg *schema.Message
	err error
}

func (m *fakeChatModel) next(msgs []*schema.Message) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, msgs)
	if len(m.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	r := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return r.msg, r.err
}

func (m *fakeChatModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return m.next(msgs)
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *fakeChatModel) WithTools(ts []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	m.bound = ts
	m.mu.Unlock()
	return &boundChatModel{parent: m}, nil
}

func (m *fakeChatModel) lastRequest() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

type boundChatModel struct {
	parent *fakeChatModel
}

func (b *boundChatModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	b.parent.mu.Lock()
	b.parent.toolsCalls++
	err := b.parent.toolsErr
	b.parent.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return b.parent.next(msgs)
}

func (b *boundChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (b *boundChatModel) WithTools(ts []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return b.parent.WithTools(ts)
}

// plainChatModel 不支持工具绑定的模型
type plainChatModel struct {
	inner *fakeChatModel
}

func (p plainChatModel) Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return p.inner.Generate(ctx, msgs, opts...)
}

func (p plainChatModel) Stream(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return p.inner.Stream(ctx, msgs, opts...)
}

type staticFactory struct {
	m   model.BaseChatModel
	err error
}

func (f staticFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	return f.m, f.err
}

func toolCallMsg(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

func joinContents(msgs []*schema.Message) string {
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}
