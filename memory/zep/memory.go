package zep

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/schema"

	l3agi "github.com/psyuktha/L3AGI"
)

// Metadata values recording which side of the conversation wrote a message.
const (
	typeHuman = "human"
	typeAI    = "ai"
)

// Memory is the history of one session. It loads prior turns as a single
// transcript string under l3agi.ChatHistoryKey.
type Memory struct {
	client    *Client
	sessionID string
	humanName string
	aiName    string
	lastN     int
	autoSave  bool
}

var _ schema.Memory = (*Memory)(nil)

// MemoryOption configures a Memory.
type MemoryOption func(*Memory)

// WithNames sets the speaker labels used for the two sides of the conversation.
func WithNames(human, ai string) MemoryOption {
	return func(m *Memory) {
		if human != "" {
			m.humanName = human
		}
		if ai != "" {
			m.aiName = ai
		}
	}
}

// WithLastN limits how many messages are loaded. 0 loads Zep's default window.
func WithLastN(n int) MemoryOption {
	return func(m *Memory) { m.lastN = n }
}

// WithAutoSave controls whether SaveContext writes to Zep. It defaults to true.
func WithAutoSave(on bool) MemoryOption {
	return func(m *Memory) { m.autoSave = on }
}

// NewMemory returns the memory of sessionID.
func NewMemory(client *Client, sessionID string, opts ...MemoryOption) *Memory {
	m := &Memory{
		client:    client,
		sessionID: sessionID,
		humanName: "Human",
		aiName:    "AI",
		autoSave:  true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Factory adapts a client to l3agi.MemoryFactory.
func Factory(client *Client, opts ...MemoryOption) l3agi.MemoryFactory {
	return func(sessionID, humanName, aiName string) l3agi.Memory {
		all := append([]MemoryOption{WithNames(humanName, aiName)}, opts...)
		return NewMemory(client, sessionID, all...)
	}
}

func (m *Memory) GetMemoryKey(context.Context) string { return l3agi.ChatHistoryKey }

func (m *Memory) MemoryVariables(context.Context) []string {
	return []string{l3agi.ChatHistoryKey}
}

// LoadMemoryVariables returns the session transcript, one "<speaker>: <text>"
// line per message, preceded by the summary when Zep has one.
func (m *Memory) LoadMemoryVariables(ctx context.Context, _ map[string]any) (map[string]any, error) {
	msgs, summary, err := m.client.GetMemory(ctx, m.sessionID, m.lastN)
	if err != nil {
		return nil, err
	}
	var lines []string
	if summary != "" {
		lines = append(lines, "Summary of earlier conversation: "+summary)
	}
	for _, msg := range msgs {
		lines = append(lines, msg.Role+": "+msg.Content)
	}
	return map[string]any{l3agi.ChatHistoryKey: strings.Join(lines, "\n")}, nil
}

// SaveContext appends the human input and the AI output as two messages.
func (m *Memory) SaveContext(ctx context.Context, inputs, outputs map[string]any) error {
	if !m.autoSave {
		return nil
	}
	in, err := single(inputs, l3agi.InputKey)
	if err != nil {
		return fmt.Errorf("zep: save context: input: %w", err)
	}
	out, err := single(outputs, "output")
	if err != nil {
		return fmt.Errorf("zep: save context: output: %w", err)
	}
	return m.client.AddMemory(ctx, m.sessionID, []Message{
		{Role: m.humanName, Content: in, Metadata: map[string]any{"type": typeHuman}},
		{Role: m.aiName, Content: strings.TrimSpace(out), Metadata: map[string]any{"type": typeAI}},
	})
}

func (m *Memory) Clear(ctx context.Context) error {
	return m.client.DeleteMemory(ctx, m.sessionID)
}

// single returns values[key], or the only value when key is absent and the
// map holds exactly one value besides the chat history.
func single(values map[string]any, key string) (string, error) {
	if v, ok := values[key]; ok {
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("%q is %T, not string", key, v)
		}
		return s, nil
	}
	var found []string
	for k, v := range values {
		if k == l3agi.ChatHistoryKey {
			continue
		}
		if s, ok := v.(string); ok {
			found = append(found, s)
		}
	}
	if len(found) != 1 {
		return "", fmt.Errorf("no %q value", key)
	}
	return found[0], nil
}
