package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	l3agi "github.com/psyuktha/L3AGI"
)

// RunInfo identifies the run an engine serves. It labels every span,
// metric and log record the wrapper emits.
type RunInfo struct {
	AgentID   string
	AgentName string
	Model     string
	SessionID string
}

// ObservedEngine wraps any Engine to emit OTEL lifecycle spans, metrics, and logs.
// Each run gets a parent span; the engine's own work runs under it via
// context propagation.
type ObservedEngine struct {
	inner l3agi.Engine
	inst  *Instruments
	info  RunInfo
}

// WrapEngine returns an instrumented Engine.
func WrapEngine(inner l3agi.Engine, inst *Instruments, info RunInfo) *ObservedEngine {
	return &ObservedEngine{inner: inner, inst: inst, info: info}
}

var _ l3agi.Engine = (*ObservedEngine)(nil)

// WrapFactory instruments every engine factory builds, along with the tools
// handed to it.
func WrapFactory(factory l3agi.EngineFactory, inst *Instruments) l3agi.EngineFactory {
	return func(ctx context.Context, cfg l3agi.EngineConfig) (l3agi.Engine, error) {
		wrapped := make([]l3agi.Tool, len(cfg.Tools))
		for i, t := range cfg.Tools {
			wrapped[i] = WrapTool(t, inst)
		}
		cfg.Tools = wrapped
		engine, err := factory(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return WrapEngine(engine, inst, RunInfo{
			AgentID:   cfg.Agent.Agent.ID,
			AgentName: cfg.Agent.Agent.Name,
			Model:     cfg.Agent.Configs.Model,
			SessionID: cfg.SessionID,
		}), nil
	}
}

func (o *ObservedEngine) attrs() []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrAgentID.String(o.info.AgentID),
		AttrAgentName.String(o.info.AgentName),
		AttrLLMModel.String(o.info.Model),
		AttrSessionID.String(o.info.SessionID),
	}
}

// StreamEvents forwards the inner engine's events to ch, counting streamed
// fragments. ch is closed once the inner stream ends.
func (o *ObservedEngine) StreamEvents(ctx context.Context, input map[string]any, ch chan<- l3agi.StreamEvent) error {
	ctx, span := o.inst.Tracer.Start(ctx, "engine.stream", trace.WithAttributes(o.attrs()...))
	defer span.End()
	start := time.Now()

	events := make(chan l3agi.StreamEvent)
	var fragments int
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(ch)
		for ev := range events {
			if ev.Kind == l3agi.EventChatModelStream {
				fragments++
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				// keep draining so the inner engine can finish
			}
		}
	}()

	err := o.inner.StreamEvents(ctx, input, events)
	<-done

	span.SetAttributes(AttrStreamChunks.Int(fragments))
	if fragments > 0 {
		o.inst.StreamFragments.Add(ctx, int64(fragments), metric.WithAttributes(AttrAgentName.String(o.info.AgentName)))
	}
	o.finish(ctx, span, "stream", start, err, otellog.Int("engine.stream_chunks", fragments))
	return err
}

// Invoke wraps the inner engine's Invoke in an engine.invoke span.
func (o *ObservedEngine) Invoke(ctx context.Context, input map[string]any) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "engine.invoke", trace.WithAttributes(o.attrs()...))
	defer span.End()
	start := time.Now()

	out, err := o.inner.Invoke(ctx, input)

	span.SetAttributes(AttrAnswerLength.Int(len(out)))
	o.finish(ctx, span, "invoke", start, err, otellog.Int("engine.answer_length", len(out)))
	return out, err
}

func (o *ObservedEngine) finish(ctx context.Context, span trace.Span, method string, start time.Time, err error, extra ...otellog.KeyValue) {
	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"

	if ctx.Err() != nil && err != nil {
		status = "cancelled"
		span.AddEvent("engine.cancelled")
		span.SetStatus(codes.Error, "cancelled")
	} else if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.AddEvent("engine.completed")
	}
	span.SetAttributes(AttrEngineMethod.String(method), AttrEngineStatus.String(status))

	// Metrics
	o.inst.EngineRuns.Add(ctx, 1, metric.WithAttributes(
		AttrAgentName.String(o.info.AgentName),
		AttrEngineMethod.String(method),
		attribute.String("status", status),
	))
	o.inst.EngineDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrAgentName.String(o.info.AgentName),
		AttrEngineMethod.String(method),
	))

	// Structured log
	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("engine run completed"))
	rec.AddAttributes(
		otellog.String("agent.id", o.info.AgentID),
		otellog.String("agent.name", o.info.AgentName),
		otellog.String("session.id", o.info.SessionID),
		otellog.String("engine.method", method),
		otellog.String("engine.status", status),
		otellog.Float64("duration_ms", durationMs),
	)
	rec.AddAttributes(extra...)
	if err != nil {
		rec.SetSeverity(otellog.SeverityError)
		rec.AddAttributes(otellog.String("error", err.Error()))
	}
	o.inst.Logger.Emit(ctx, rec)
}
