package observer

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/log/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	l3agi "github.com/psyuktha/L3AGI"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

type mockEngine struct {
	fragments []string
	answer    string
	err       error
}

func (m *mockEngine) StreamEvents(ctx context.Context, _ map[string]any, ch chan<- l3agi.StreamEvent) error {
	defer close(ch)
	ch <- l3agi.StreamEvent{Kind: l3agi.EventChainStart}
	for _, f := range m.fragments {
		select {
		case ch <- l3agi.ContentDelta(f):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func (m *mockEngine) Invoke(_ context.Context, _ map[string]any) (string, error) {
	return m.answer, m.err
}

type mockTool struct {
	result string
	err    error
}

func (m *mockTool) Name() string        { return "lookup" }
func (m *mockTool) Description() string { return "looks things up" }
func (m *mockTool) Call(_ context.Context, _ string) (string, error) {
	return m.result, m.err
}

type mockSpeech struct {
	out string
	err error
}

func (m *mockSpeech) SpeechToText(_ context.Context, _ string, _ l3agi.AgentConfigs, _ l3agi.AccountVoiceSettings) (string, error) {
	return m.out, m.err
}

func (m *mockSpeech) TextToSpeech(_ context.Context, _ string, _ l3agi.AgentConfigs, _ l3agi.AccountVoiceSettings) (string, error) {
	return m.out, m.err
}

// testInstruments records spans and metrics in memory.
func testInstruments(t *testing.T) (*Instruments, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	inst, err := newInstruments(
		sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)),
		sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		noop.NewLoggerProvider(),
	)
	if err != nil {
		t.Fatalf("newInstruments: %v", err)
	}
	return inst, spans, reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

// ---------------------------------------------------------------------------
// ObservedEngine tests
// ---------------------------------------------------------------------------

func TestObservedEngineStream(t *testing.T) {
	inst, spans, reader := testInstruments(t)
	e := WrapEngine(&mockEngine{fragments: []string{"Final", " Answer:", " hi"}}, inst, RunInfo{AgentName: "Ava"})

	ch := make(chan l3agi.StreamEvent)
	errc := make(chan error, 1)
	go func() { errc <- e.StreamEvents(context.Background(), map[string]any{"input": "hi"}, ch) }()

	var got []l3agi.StreamEvent
	for ev := range ch {
		got = append(got, ev)
	}
	if err := <-errc; err != nil {
		t.Fatalf("StreamEvents: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("forwarded %d events, want 4", len(got))
	}
	if got[3].Data.Chunk.Content != " hi" {
		t.Errorf("last fragment = %q", got[3].Data.Chunk.Content)
	}

	ended := spans.Ended()
	if len(ended) != 1 || ended[0].Name() != "engine.stream" {
		t.Fatalf("spans = %v", ended)
	}
	if n := counterValue(t, reader, "engine.stream.fragments"); n != 3 {
		t.Errorf("fragments counter = %d, want 3", n)
	}
	if n := counterValue(t, reader, "engine.runs"); n != 1 {
		t.Errorf("runs counter = %d, want 1", n)
	}
}

func TestObservedEngineStreamError(t *testing.T) {
	inst, spans, _ := testInstruments(t)
	wantErr := errors.New("upstream broke")
	e := WrapEngine(&mockEngine{fragments: []string{"a"}, err: wantErr}, inst, RunInfo{})

	ch := make(chan l3agi.StreamEvent, 8)
	err := e.StreamEvents(context.Background(), nil, ch)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if _, open := <-ch; !open {
		t.Fatal("expected buffered events before close")
	}
	ended := spans.Ended()
	if len(ended) != 1 || ended[0].Status().Code != codes.Error {
		t.Errorf("span status = %+v", ended)
	}
}

func TestObservedEngineInvoke(t *testing.T) {
	inst, spans, _ := testInstruments(t)
	e := WrapEngine(&mockEngine{answer: "Paris"}, inst, RunInfo{AgentName: "Ava"})

	out, err := e.Invoke(context.Background(), nil)
	if err != nil || out != "Paris" {
		t.Fatalf("Invoke = %q, %v", out, err)
	}
	if ended := spans.Ended(); len(ended) != 1 || ended[0].Name() != "engine.invoke" {
		t.Errorf("spans = %v", ended)
	}
}

func TestWrapFactory(t *testing.T) {
	inst, _, reader := testInstruments(t)
	var seen l3agi.EngineConfig
	factory := WrapFactory(func(_ context.Context, cfg l3agi.EngineConfig) (l3agi.Engine, error) {
		seen = cfg
		return &mockEngine{answer: "ok"}, nil
	}, inst)

	engine, err := factory(context.Background(), l3agi.EngineConfig{Tools: []l3agi.Tool{&mockTool{result: "r"}}})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if _, ok := engine.(*ObservedEngine); !ok {
		t.Errorf("engine is %T", engine)
	}
	if len(seen.Tools) != 1 {
		t.Fatalf("tools = %v", seen.Tools)
	}
	if _, ok := seen.Tools[0].(*ObservedTool); !ok {
		t.Errorf("tool is %T", seen.Tools[0])
	}
	if _, err := seen.Tools[0].Call(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if n := counterValue(t, reader, "tool.executions"); n != 1 {
		t.Errorf("tool executions = %d, want 1", n)
	}

	boom := errors.New("no key")
	failing := WrapFactory(func(context.Context, l3agi.EngineConfig) (l3agi.Engine, error) { return nil, boom }, inst)
	if _, err := failing(context.Background(), l3agi.EngineConfig{}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

// ---------------------------------------------------------------------------
// ObservedTool tests
// ---------------------------------------------------------------------------

func TestObservedTool(t *testing.T) {
	inst, spans, _ := testInstruments(t)
	ot := WrapTool(&mockTool{result: "result data"}, inst)

	if ot.Name() != "lookup" || ot.Description() != "looks things up" {
		t.Errorf("metadata = %q %q", ot.Name(), ot.Description())
	}
	got, err := ot.Call(context.Background(), "q")
	if err != nil || got != "result data" {
		t.Fatalf("Call = %q, %v", got, err)
	}
	if ended := spans.Ended(); len(ended) != 1 || ended[0].Name() != "tool.call" {
		t.Errorf("spans = %v", ended)
	}
}

func TestObservedToolError(t *testing.T) {
	inst, _, _ := testInstruments(t)
	wantErr := errors.New("tool broken")
	_, err := WrapTool(&mockTool{err: wantErr}, inst).Call(context.Background(), "q")
	if !errors.Is(err, wantErr) {
		t.Errorf("Call error = %v, want %v", err, wantErr)
	}
}

// ---------------------------------------------------------------------------
// Speech tests
// ---------------------------------------------------------------------------

func TestObservedSpeech(t *testing.T) {
	inst, spans, reader := testInstruments(t)
	ctx := context.Background()

	text, err := WrapTranscriber(&mockSpeech{out: "hello"}, inst).SpeechToText(ctx, "u", l3agi.AgentConfigs{}, l3agi.AccountVoiceSettings{})
	if err != nil || text != "hello" {
		t.Fatalf("SpeechToText = %q, %v", text, err)
	}
	wantErr := errors.New("tts down")
	if _, err := WrapSynthesizer(&mockSpeech{err: wantErr}, inst).TextToSpeech(ctx, "hi", l3agi.AgentConfigs{}, l3agi.AccountVoiceSettings{}); !errors.Is(err, wantErr) {
		t.Errorf("TextToSpeech err = %v", err)
	}

	ended := spans.Ended()
	if len(ended) != 2 || ended[0].Name() != "speech.transcribe" || ended[1].Name() != "speech.synthesize" {
		t.Errorf("spans = %v", ended)
	}
	if n := counterValue(t, reader, "speech.requests"); n != 2 {
		t.Errorf("speech requests = %d, want 2", n)
	}
}

func TestGlobal(t *testing.T) {
	if _, err := Global(); err != nil {
		t.Fatalf("Global: %v", err)
	}
}
