package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"mvx-assistant-api/internal/application/retrieval"
	"mvx-assistant-api/internal/application/tools"
	"mvx-assistant-api/internal/domain/entity"
	einoobs "mvx-assistant-api/internal/observability/eino"
	"mvx-assistant-api/pkg/logger"
	"mvx-assistant-api/pkg/metrics"
	"mvx-assistant-api/pkg/tracer"
)

const (
	DefaultMaxIterations = 3
	defaultMaxHistory    = 20

	workflowName = "agent_answer"

	// 最佳努力回答中每条观察结果的最大字符数
	degradedObservationRunes = 600
)

const correctionPrompt = "Your previous reply could not be understood. Reply either with a final answer or with exactly one tool call, following the required format."

// Config 编排参数
type Config struct {
	MaxIterations int
	MaxHistory    int
	// Provider 仅用于指标与追踪标签
	Provider string
}

// Orchestrator 问答编排状态机：
// init -> reason -> (tools | correct -> reason)* -> finalize | degrade | abort
type Orchestrator struct {
	reasoner      Reasoner
	registry      *tools.Registry
	maxIterations int
	maxHistory    int
	provider      string

	graphOnce sync.Once
	graph     compose.Runnable[*answerInput, *answerResult]
	graphErr  error
}

func NewOrchestrator(reasoner Reasoner, registry *tools.Registry, cfg Config) (*Orchestrator, error) {
	if reasoner == nil {
		return nil, errors.New("reasoner is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("max iterations must be >= 0, got %d", cfg.MaxIterations)
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = defaultMaxHistory
	}
	return &Orchestrator{
		reasoner:      reasoner,
		registry:      registry,
		maxIterations: cfg.MaxIterations,
		maxHistory:    cfg.MaxHistory,
		provider:      cfg.Provider,
	}, nil
}

// MaxIterations 推理与工具往返的上限
func (o *Orchestrator) MaxIterations() int { return o.maxIterations }

type answerInput struct {
	query   string
	history []entity.ConversationTurn
}

type answerResult struct {
	answer *Answer
	err    error
}

type answerState struct {
	in       *ReasonInput
	decision *Decision
	// parseErr 本轮推理输出无法解析
	parseErr *UnparsableOutputError
	rounds   int
	fatal    error
}

// Answer 回答一个问题。失败时返回 *AgentError；轮次耗尽不是错误，Outcome 为 MaxIterationsExceeded。
func (o *Orchestrator) Answer(ctx context.Context, query string, history []entity.ConversationTurn) (ans *Answer, err error) {
	ctx, span := tracer.Start(ctx, "agent.Orchestrator.Answer")
	defer func() { tracer.Finish(span, err) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, newAgentError(ErrEmptyQuery)
	}

	runnable, err := o.getGraph()
	if err != nil {
		return nil, newAgentError(fmt.Errorf("build agent graph: %w", err))
	}

	ctx = einoobs.WithWorkflowProvider(ctx, workflowName, o.provider)
	res, err := runnable.Invoke(ctx, &answerInput{query: query, history: history},
		compose.WithRuntimeMaxSteps(o.maxSteps()))
	if err == nil && res.err != nil {
		err = res.err
	}
	if err != nil {
		metrics.AgentOutcomeTotal.WithLabelValues("failed").Inc()
		ae := newAgentError(err)
		logger.Error(ctx, "agent answer failed", ae, "kind", string(ae.Kind))
		return nil, ae
	}

	ans = res.answer
	metrics.AgentRounds.Observe(float64(ans.Rounds))
	metrics.AgentOutcomeTotal.WithLabelValues(string(ans.Outcome)).Inc()
	logger.Info(ctx, "agent answered",
		"outcome", string(ans.Outcome),
		"rounds", ans.Rounds,
		"steps", len(ans.Steps),
	)
	return ans, nil
}

// maxSteps 图运行的超步上限：每轮 reason + tools/correct 两步，外加 init、最后一次 reason、终结节点与 END
func (o *Orchestrator) maxSteps() int {
	return 2*o.maxIterations + 6
}

func (o *Orchestrator) getGraph() (compose.Runnable[*answerInput, *answerResult], error) {
	o.graphOnce.Do(func() {
		o.graph, o.graphErr = o.buildGraph(context.Background())
	})
	return o.graph, o.graphErr
}

func (o *Orchestrator) buildGraph(ctx context.Context) (compose.Runnable[*answerInput, *answerResult], error) {
	graph := compose.NewGraph[*answerInput, *answerResult]()

	if err := graph.AddLambdaNode("init", compose.InvokableLambda(o.initNode), compose.WithNodeName("agent.init")); err != nil {
		return nil, err
	}
	if err := graph.AddLambdaNode("reason", compose.InvokableLambda(o.reasonNode), compose.WithNodeName("agent.reason")); err != nil {
		return nil, err
	}
	if err := graph.AddLambdaNode("tools", compose.InvokableLambda(o.toolsNode), compose.WithNodeName("agent.tools")); err != nil {
		return nil, err
	}
	if err := graph.AddLambdaNode("correct", compose.InvokableLambda(o.correctNode), compose.WithNodeName("agent.correct")); err != nil {
		return nil, err
	}
	if err := graph.AddLambdaNode("finalize", compose.InvokableLambda(finalizeNode), compose.WithNodeName("agent.finalize")); err != nil {
		return nil, err
	}
	if err := graph.AddLambdaNode("degrade", compose.InvokableLambda(degradeNode), compose.WithNodeName("agent.degrade")); err != nil {
		return nil, err
	}
	if err := graph.AddLambdaNode("abort", compose.InvokableLambda(abortNode), compose.WithNodeName("agent.abort")); err != nil {
		return nil, err
	}

	// START -> init -> reason
	//                    ↓
	//        fatal → abort | 无法解析 → correct → reason
	//        工具请求 → tools → reason | 最终回答 → finalize
	//        轮次耗尽 → degrade
	if err := graph.AddEdge(compose.START, "init"); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("init", "reason"); err != nil {
		return nil, err
	}
	if err := graph.AddBranch("reason", compose.NewGraphBranch(o.afterReason, map[string]bool{
		"tools": true, "correct": true, "finalize": true, "degrade": true, "abort": true,
	})); err != nil {
		return nil, err
	}
	if err := graph.AddBranch("tools", compose.NewGraphBranch(afterTools, map[string]bool{
		"reason": true, "abort": true,
	})); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("correct", "reason"); err != nil {
		return nil, err
	}
	for _, terminal := range []string{"finalize", "degrade", "abort"} {
		if err := graph.AddEdge(terminal, compose.END); err != nil {
			return nil, err
		}
	}

	return graph.Compile(ctx, compose.WithGraphName("agent_answer_graph"))
}

func (o *Orchestrator) initNode(ctx context.Context, in *answerInput) (*answerState, error) {
	infos, err := o.registry.Infos(ctx)
	if err != nil {
		return nil, err
	}
	return &answerState{
		in: &ReasonInput{
			Query:   in.query,
			Tools:   infos,
			History: trimHistory(in.history, o.maxHistory),
		},
	}, nil
}

func (o *Orchestrator) reasonNode(ctx context.Context, st *answerState) (*answerState, error) {
	st.decision, st.parseErr = nil, nil

	d, err := o.reasoner.Reason(ctx, st.in)
	var parseErr *UnparsableOutputError
	switch {
	case err == nil && d == nil:
		st.parseErr = &UnparsableOutputError{Reason: "empty decision"}
	case err == nil && !d.IsToolCall() && strings.TrimSpace(d.FinalAnswer) == "":
		st.parseErr = &UnparsableOutputError{Reason: "empty final answer"}
	case err == nil:
		st.decision = d
	case errors.As(err, &parseErr):
		st.parseErr = parseErr
	case errors.Is(err, ErrUnparsableOutput):
		st.parseErr = &UnparsableOutputError{Reason: err.Error()}
	case errors.Is(err, ErrReasoningUnavailable):
		st.fatal = err
	default:
		st.fatal = fmt.Errorf("%w: %w", ErrReasoningUnavailable, err)
	}

	logger.Debug(ctx, "agent reasoning round",
		"round", st.rounds,
		"tool", toolNameOf(st.decision),
		"parse_error", st.parseErr != nil,
		"fatal", st.fatal != nil,
	)
	return st, nil
}

func (o *Orchestrator) afterReason(_ context.Context, st *answerState) (string, error) {
	switch {
	case st.fatal != nil:
		return "abort", nil
	case st.decision != nil && !st.decision.IsToolCall():
		return "finalize", nil
	case st.rounds >= o.maxIterations:
		return "degrade", nil
	case st.parseErr != nil:
		return "correct", nil
	default:
		return "tools", nil
	}
}

func (o *Orchestrator) toolsNode(ctx context.Context, st *answerState) (*answerState, error) {
	d := st.decision
	step := Step{
		CallID:   d.CallID,
		ToolName: strings.TrimSpace(d.ToolName),
		Argument: d.ToolArgument,
	}
	if step.CallID == "" {
		step.CallID = "call_" + uuid.NewString()
	}

	out, err := o.registry.Invoke(ctx, d.ToolName, d.ToolArgument)
	switch {
	case err == nil:
		step.Kind = StepToolResult
		step.Observation = out
	case errors.Is(err, ErrToolNotFound):
		step.Kind = StepToolNotFound
		step.Observation = errorObservation(fmt.Sprintf("unknown tool: %s", step.ToolName), o.registry.Names())
	case isFatalToolError(err):
		st.fatal = fmt.Errorf("tool %s: %w", step.ToolName, err)
		return st, nil
	default:
		step.Kind = StepToolFailed
		step.Observation = errorObservation(toolFailureText(step.ToolName, err), nil)
		logger.Warn(ctx, "agent tool failed", "tool", step.ToolName, "error", err.Error())
	}

	st.in.Scratchpad = append(st.in.Scratchpad, step)
	st.rounds++
	return st, nil
}

func afterTools(_ context.Context, st *answerState) (string, error) {
	if st.fatal != nil {
		return "abort", nil
	}
	return "reason", nil
}

func (o *Orchestrator) correctNode(ctx context.Context, st *answerState) (*answerState, error) {
	raw := ""
	if st.parseErr != nil {
		raw = st.parseErr.Raw
	}
	st.in.Scratchpad = append(st.in.Scratchpad, Step{
		Kind:        StepParseError,
		Observation: correctionPrompt,
		RawOutput:   raw,
	})
	st.rounds++
	logger.Debug(ctx, "agent output unparsable, retrying", "round", st.rounds)
	return st, nil
}

func finalizeNode(_ context.Context, st *answerState) (*answerResult, error) {
	return &answerResult{answer: &Answer{
		Text:    strings.TrimSpace(st.decision.FinalAnswer),
		Outcome: OutcomeCompleted,
		Rounds:  st.rounds,
		Steps:   st.in.Scratchpad,
	}}, nil
}

func degradeNode(_ context.Context, st *answerState) (*answerResult, error) {
	return &answerResult{answer: &Answer{
		Text:    bestEffortAnswer(st.in.Scratchpad),
		Outcome: OutcomeMaxIterationsExceeded,
		Rounds:  st.rounds,
		Steps:   st.in.Scratchpad,
	}}, nil
}

func abortNode(_ context.Context, st *answerState) (*answerResult, error) {
	return &answerResult{err: st.fatal}, nil
}

// bestEffortAnswer 用已成功的工具结果拼出一个降级回答
func bestEffortAnswer(steps []Step) string {
	var b strings.Builder
	for _, s := range steps {
		if s.Kind != StepToolResult {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("I could not finish reasoning within the allowed number of steps. Here is what I found:")
		}
		fmt.Fprintf(&b, "\n- %s: %s", s.ToolName,
			retrieval.TruncateRunes(retrieval.CompactOneLine(s.Observation), degradedObservationRunes))
	}
	if b.Len() == 0 {
		return "I could not find enough information to answer this question. Please try rephrasing it."
	}
	return b.String()
}

func errorObservation(msg string, available []string) string {
	payload := map[string]any{"error": msg}
	if len(available) > 0 {
		payload["available_tools"] = available
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func toolFailureText(name string, err error) string {
	if errors.Is(err, retrieval.ErrIngestionFailed) {
		return fmt.Sprintf("tool %s failed: website content is currently unavailable", name)
	}
	return fmt.Sprintf("tool %s failed: %s", name, retrieval.TruncateRunes(err.Error(), 300))
}

func trimHistory(history []entity.ConversationTurn, max int) []entity.ConversationTurn {
	out := make([]entity.ConversationTurn, 0, min(len(history), max))
	for _, t := range history {
		if t.Valid() {
			out = append(out, t)
		}
	}
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}

func toolNameOf(d *Decision) string {
	if d == nil {
		return ""
	}
	return d.ToolName
}
