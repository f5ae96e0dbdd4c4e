package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxArgsAttr    = 4096
	maxOutputAttr  = 1024
	maxActiveSpans = 1000
)

// Recorder turns harness events (tool calls, chat messages) into
// spans. Tool spans stay open between the before and after events,
// tracked by call id. The tracking map is bounded: past maxActiveSpans
// the oldest open span is ended and evicted, so a tool call whose
// finish event never arrives cannot leak spans forever. All methods
// are safe on a Recorder built from a nil provider: they simply do
// nothing.
type Recorder struct {
	tracer      trace.Tracer
	traceEvents bool

	mu          sync.Mutex
	activeSpans map[string]trace.Span
	spanOrder   []string
}

// NewRecorder builds a recorder on top of the provider.
func NewRecorder(p *Provider) *Recorder {
	r := &Recorder{activeSpans: make(map[string]trace.Span)}
	if p != nil {
		r.tracer = p.tracer
		r.traceEvents = p.cfg.TraceEvents
	}
	return r
}

// ToolStarted opens a span for a tool invocation.
func (r *Recorder) ToolStarted(ctx context.Context, sessionID, tool, callID string, args interface{}) {
	if r.tracer == nil {
		return
	}

	_, span := r.tracer.Start(ctx, "openfleet.tool."+tool, trace.WithAttributes(
		attribute.String("openfleet.tool.name", tool),
		attribute.String("openfleet.session.id", sessionID),
		attribute.String("openfleet.tool.call_id", callID),
	))

	if data, err := json.Marshal(args); err == nil {
		if len(data) < maxArgsAttr {
			span.SetAttributes(attribute.String("openfleet.tool.args", string(data)))
		} else {
			span.SetAttributes(attribute.Bool("openfleet.tool.args_truncated", true))
		}
	}

	r.mu.Lock()
	if prev, ok := r.activeSpans[callID]; ok {
		prev.End()
	} else {
		if len(r.spanOrder) >= maxActiveSpans {
			oldest := r.spanOrder[0]
			r.spanOrder = r.spanOrder[1:]
			if s, ok := r.activeSpans[oldest]; ok {
				s.End()
				delete(r.activeSpans, oldest)
			}
		}
		r.spanOrder = append(r.spanOrder, callID)
	}
	r.activeSpans[callID] = span
	r.mu.Unlock()
}

// ToolFinished closes the span opened for the call id.
func (r *Recorder) ToolFinished(callID, title, output string, metadata interface{}) {
	if r.tracer == nil {
		return
	}

	r.mu.Lock()
	span, ok := r.activeSpans[callID]
	if ok {
		delete(r.activeSpans, callID)
		for i, id := range r.spanOrder {
			if id == callID {
				r.spanOrder = append(r.spanOrder[:i], r.spanOrder[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(
		attribute.String("openfleet.tool.title", title),
		attribute.Int("openfleet.tool.output_length", len(output)),
	)

	if output != "" {
		if len(output) < maxOutputAttr {
			span.SetAttributes(attribute.String("openfleet.tool.output", output))
		} else {
			span.SetAttributes(attribute.String("openfleet.tool.output_preview", output[:maxOutputAttr]))
		}
	}

	if metadata != nil {
		if data, err := json.Marshal(metadata); err == nil {
			span.SetAttributes(attribute.String("openfleet.tool.metadata", string(data)))
		}
	}

	span.SetStatus(codes.Ok, "")
	span.End()
}

// ChatMessage emits a span for one chat turn.
func (r *Recorder) ChatMessage(ctx context.Context, sessionID, agent, modelProvider, modelID string, partCount int) {
	if r.tracer == nil {
		return
	}

	if agent == "" {
		agent = "unknown"
	}

	_, span := r.tracer.Start(ctx, "openfleet.chat.message", trace.WithAttributes(
		attribute.String("openfleet.session.id", sessionID),
		attribute.String("openfleet.agent", agent),
		attribute.Int("openfleet.message.parts_count", partCount),
	))
	if modelProvider != "" {
		span.SetAttributes(
			attribute.String("openfleet.model.provider", modelProvider),
			attribute.String("openfleet.model.id", modelID),
		)
	}
	span.End()
}

// Event emits a span for a generic harness event. Gated behind the
// trace-events flag because these are high volume.
func (r *Recorder) Event(ctx context.Context, eventType string, properties map[string]interface{}) {
	if r.tracer == nil || !r.traceEvents {
		return
	}

	attrs := []attribute.KeyValue{attribute.String("openfleet.event.type", eventType)}
	attrs = append(attrs, flatten("openfleet.event", properties)...)

	_, span := r.tracer.Start(ctx, "openfleet.event."+eventType, trace.WithAttributes(attrs...))
	span.End()
}

// ActiveSpans reports how many tool spans are awaiting completion.
func (r *Recorder) ActiveSpans() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.activeSpans)
}

func flatten(prefix string, props map[string]interface{}) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for key, value := range props {
		fullKey := prefix + "." + key
		switch v := value.(type) {
		case string:
			attrs = append(attrs, attribute.String(fullKey, v))
		case bool:
			attrs = append(attrs, attribute.Bool(fullKey, v))
		case int:
			attrs = append(attrs, attribute.Int(fullKey, v))
		case int64:
			attrs = append(attrs, attribute.Int64(fullKey, v))
		case float64:
			attrs = append(attrs, attribute.Float64(fullKey, v))
		case map[string]interface{}:
			attrs = append(attrs, flatten(fullKey, v)...)
		default:
			attrs = append(attrs, attribute.String(fullKey, fmt.Sprintf("%v", v)))
		}
	}
	return attrs
}
