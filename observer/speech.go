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

// ObservedTranscriber wraps a Transcriber with OTEL instrumentation.
type ObservedTranscriber struct {
	inner l3agi.Transcriber
	inst  *Instruments
}

// WrapTranscriber returns an instrumented Transcriber.
func WrapTranscriber(inner l3agi.Transcriber, inst *Instruments) *ObservedTranscriber {
	return &ObservedTranscriber{inner: inner, inst: inst}
}

func (o *ObservedTranscriber) SpeechToText(ctx context.Context, audioURL string, cfg l3agi.AgentConfigs, settings l3agi.AccountVoiceSettings) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "speech.transcribe", trace.WithAttributes(
		AttrSpeechOp.String("stt"),
		AttrSpeechModel.String(cfg.Transcriber),
	))
	defer span.End()
	start := time.Now()

	text, err := o.inner.SpeechToText(ctx, audioURL, cfg, settings)

	record(ctx, o.inst, span, "stt", cfg.Transcriber, start, err)
	return text, err
}

// ObservedSynthesizer wraps a Synthesizer with OTEL instrumentation.
type ObservedSynthesizer struct {
	inner l3agi.Synthesizer
	inst  *Instruments
}

// WrapSynthesizer returns an instrumented Synthesizer.
func WrapSynthesizer(inner l3agi.Synthesizer, inst *Instruments) *ObservedSynthesizer {
	return &ObservedSynthesizer{inner: inner, inst: inst}
}

func (o *ObservedSynthesizer) TextToSpeech(ctx context.Context, text string, cfg l3agi.AgentConfigs, settings l3agi.AccountVoiceSettings) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "speech.synthesize", trace.WithAttributes(
		AttrSpeechOp.String("tts"),
		AttrSpeechModel.String(cfg.Synthesizer),
	))
	defer span.End()
	start := time.Now()

	u, err := o.inner.TextToSpeech(ctx, text, cfg, settings)

	record(ctx, o.inst, span, "tts", cfg.Synthesizer, start, err)
	return u, err
}

var (
	_ l3agi.Transcriber = (*ObservedTranscriber)(nil)
	_ l3agi.Synthesizer = (*ObservedSynthesizer)(nil)
)

func record(ctx context.Context, inst *Instruments, span trace.Span, op, model string, start time.Time, err error) {
	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(AttrSpeechStatus.String(status))

	inst.SpeechRequests.Add(ctx, 1, metric.WithAttributes(
		AttrSpeechOp.String(op),
		attribute.String("status", status),
	))
	inst.SpeechDuration.Record(ctx, durationMs, metric.WithAttributes(AttrSpeechOp.String(op)))

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("speech request completed"))
	rec.AddAttributes(
		otellog.String("speech.op", op),
		otellog.String("speech.model", model),
		otellog.String("speech.status", status),
		otellog.Float64("duration_ms", durationMs),
	)
	inst.Logger.Emit(ctx, rec)
}
