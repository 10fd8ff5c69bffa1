package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mvx-assistant-api/pkg/metrics"
	"mvx-assistant-api/pkg/tracer"
)

// Registry 启动时构建、之后只读的工具目录，并发读取无需加锁
type Registry struct {
	byName map[string]Tool
	order  []Tool
}

// NewRegistry 按给定顺序注册工具；名称为空或重复时返回错误
func NewRegistry(ts ...Tool) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]Tool, len(ts)),
		order:  make([]Tool, 0, len(ts)),
	}
	for _, t := range ts {
		if t == nil || strings.TrimSpace(t.Name()) == "" {
			return nil, fmt.Errorf("tool name is required")
		}
		if _, exists := r.byName[t.Name()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, t.Name())
		}
		r.byName[t.Name()] = t
		r.order = append(r.order, t)
	}
	return r, nil
}

// Lookup 按名称查找工具（忽略首尾空白，大小写敏感）
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.byName[strings.TrimSpace(name)]
	return t, ok
}

func (r *Registry) Len() int { return len(r.order) }

// Names 按注册顺序返回工具名称
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	for i, t := range r.order {
		out[i] = t.Name()
	}
	return out
}

// Infos 按注册顺序返回供模型绑定的工具描述
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	out := make([]*schema.ToolInfo, 0, len(r.order))
	for _, t := range r.order {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool %s info: %w", t.Name(), err)
		}
		out = append(out, info)
	}
	return out, nil
}

// Invoke 查找并调用工具；未注册时返回 ErrToolNotFound
func (r *Registry) Invoke(ctx context.Context, name, argument string) (out string, err error) {
	t, ok := r.Lookup(name)
	if !ok {
		metrics.ToolCallTotal.WithLabelValues("unknown", "not_found").Inc()
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, strings.TrimSpace(name))
	}

	ctx, span := tracer.Start(ctx, "tool.invoke", trace.WithAttributes(
		attribute.String("tool.name", t.Name()),
		attribute.String("tool.kind", string(t.Kind())),
	))
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.ToolCallTotal.WithLabelValues(t.Name(), status).Inc()
		metrics.ToolCallDuration.WithLabelValues(t.Name()).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.Int("tool.output_bytes", len(out)))
		tracer.Finish(span, err)
	}()

	return t.Invoke(ctx, argument)
}
