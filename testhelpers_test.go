package l3agi

import (
	"context"
	"errors"
	"sync"
)

// --- Engine mocks ---

// scriptedEngine streams fragments as content deltas, then returns err.
type scriptedEngine struct {
	fragments []string
	extra     []StreamEvent // sent before the fragments
	err       error
	invokeOut string

	mu     sync.Mutex
	inputs []map[string]any
}

func (e *scriptedEngine) StreamEvents(ctx context.Context, input map[string]any, ch chan<- StreamEvent) error {
	defer close(ch)
	e.record(input)
	for _, ev := range e.extra {
		select {
		case ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, f := range e.fragments {
		select {
		case ch <- ContentDelta(f):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return e.err
}

func (e *scriptedEngine) Invoke(_ context.Context, input map[string]any) (string, error) {
	e.record(input)
	return e.invokeOut, e.err
}

func (e *scriptedEngine) record(input map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inputs = append(e.inputs, input)
}

func (e *scriptedEngine) lastInput() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.inputs) == 0 {
		return nil
	}
	return e.inputs[len(e.inputs)-1]
}

// endlessEngine streams the marker and then fragments until cancelled.
type endlessEngine struct {
	returned chan struct{}
}

func (e *endlessEngine) StreamEvents(ctx context.Context, _ map[string]any, ch chan<- StreamEvent) error {
	defer close(e.returned)
	defer close(ch)
	for _, f := range []string{"Final", " Answer", ":"} {
		select {
		case ch <- ContentDelta(f):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for {
		select {
		case ch <- ContentDelta(" more"):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *endlessEngine) Invoke(context.Context, map[string]any) (string, error) {
	return "", errors.New("not supported")
}

func factoryFor(e Engine) (EngineFactory, *[]EngineConfig) {
	var seen []EngineConfig
	return func(_ context.Context, cfg EngineConfig) (Engine, error) {
		seen = append(seen, cfg)
		return e, nil
	}, &seen
}

// collect drains ch into a slice.
func collect(ch <-chan string) []string {
	var out []string
	for s := range ch {
		out = append(out, s)
	}
	return out
}

// --- Memory mock ---

type mockMemory struct {
	key     string
	history string
	saved   []map[string]any
	outputs []map[string]any
}

func (m *mockMemory) GetMemoryKey(context.Context) string     { return m.key }
func (m *mockMemory) MemoryVariables(context.Context) []string { return []string{m.key} }
func (m *mockMemory) LoadMemoryVariables(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{m.key: m.history}, nil
}
func (m *mockMemory) SaveContext(_ context.Context, in, out map[string]any) error {
	m.saved = append(m.saved, in)
	m.outputs = append(m.outputs, out)
	return nil
}
func (m *mockMemory) Clear(context.Context) error { return nil }

// --- Store / publisher mocks ---

type mockHistory struct {
	msgs []ChatMessage
	err  error
}

func (h *mockHistory) StoreMessage(_ context.Context, m ChatMessage) error {
	if h.err != nil {
		return h.err
	}
	h.msgs = append(h.msgs, m)
	return nil
}
func (h *mockHistory) GetMessages(context.Context, string, int) ([]ChatMessage, error) {
	return h.msgs, nil
}
func (h *mockHistory) Init(context.Context) error { return nil }
func (h *mockHistory) Close() error               { return nil }

type mockPublisher struct {
	sent []ChatMessage
}

func (p *mockPublisher) SendChatMessage(_ context.Context, m ChatMessage) error {
	p.sent = append(p.sent, m)
	return nil
}

// --- Speech mocks ---

type mockSpeech struct {
	text    string
	url     string
	sttErr  error
	ttsErr  error
	spoken  []string
	heardAt []string
}

func (s *mockSpeech) SpeechToText(_ context.Context, audioURL string, _ AgentConfigs, _ AccountVoiceSettings) (string, error) {
	s.heardAt = append(s.heardAt, audioURL)
	return s.text, s.sttErr
}

func (s *mockSpeech) TextToSpeech(_ context.Context, text string, _ AgentConfigs, _ AccountVoiceSettings) (string, error) {
	s.spoken = append(s.spoken, text)
	return s.url, s.ttsErr
}
