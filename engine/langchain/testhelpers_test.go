package langchain

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"

	l3agi "github.com/psyuktha/L3AGI"
)

// scriptedModel answers each call with the next scripted token list,
// streaming the tokens when the caller asks for it. The last script repeats.
type scriptedModel struct {
	scripts [][]string

	mu      sync.Mutex
	calls   int
	prompts []string
	temps   []float64
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	m.mu.Lock()
	i := min(m.calls, len(m.scripts)-1)
	m.calls++
	m.prompts = append(m.prompts, promptText(messages))
	m.temps = append(m.temps, opts.Temperature)
	m.mu.Unlock()

	if i < 0 {
		return nil, errors.New("no script")
	}
	tokens := m.scripts[i]
	if opts.StreamingFunc != nil {
		for _, tok := range tokens {
			if err := opts.StreamingFunc(ctx, []byte(tok)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: strings.Join(tokens, "")}},
	}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *scriptedModel) prompt(i int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i >= len(m.prompts) {
		return ""
	}
	return m.prompts[i]
}

func promptText(messages []llms.MessageContent) string {
	var b strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				b.WriteString(text.Text)
			}
		}
	}
	return b.String()
}

// lookupTool returns a fixed observation and records its inputs.
type lookupTool struct {
	result string
	err    error
	inputs []string
}

func (t *lookupTool) Name() string        { return "lookup" }
func (t *lookupTool) Description() string { return "Looks up the capital of a country." }
func (t *lookupTool) Call(_ context.Context, input string) (string, error) {
	t.inputs = append(t.inputs, input)
	return t.result, t.err
}

type fakeMemory struct {
	history string
	inputs  []map[string]any
	outputs []map[string]any
}

func (m *fakeMemory) GetMemoryKey(context.Context) string     { return l3agi.ChatHistoryKey }
func (m *fakeMemory) MemoryVariables(context.Context) []string { return []string{l3agi.ChatHistoryKey} }
func (m *fakeMemory) LoadMemoryVariables(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{l3agi.ChatHistoryKey: m.history}, nil
}
func (m *fakeMemory) SaveContext(_ context.Context, in, out map[string]any) error {
	m.inputs = append(m.inputs, in)
	m.outputs = append(m.outputs, out)
	return nil
}
func (m *fakeMemory) Clear(context.Context) error { return nil }

type fakeRunLogs struct {
	mu   sync.Mutex
	logs []l3agi.RunLog
}

func (s *fakeRunLogs) StoreRunLog(_ context.Context, l l3agi.RunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
	return nil
}

func (s *fakeRunLogs) ListRunLogs(context.Context, string, int) ([]l3agi.RunLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]l3agi.RunLog(nil), s.logs...), nil
}

func (s *fakeRunLogs) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, l := range s.logs {
		out = append(out, l.Kind)
	}
	return out
}

// drain collects every event sent on ch.
func drain(ch <-chan l3agi.StreamEvent) []l3agi.StreamEvent {
	var out []l3agi.StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}
