package langchain

import (
	"context"

	l3agi "github.com/psyuktha/L3AGI"
)

// noHistory is used when no memory is configured. The prompt always expects
// a chat history variable, so it loads an empty one.
type noHistory struct{}

func (noHistory) GetMemoryKey(context.Context) string { return l3agi.ChatHistoryKey }

func (noHistory) MemoryVariables(context.Context) []string {
	return []string{l3agi.ChatHistoryKey}
}

func (noHistory) LoadMemoryVariables(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{l3agi.ChatHistoryKey: ""}, nil
}

func (noHistory) SaveContext(context.Context, map[string]any, map[string]any) error { return nil }

func (noHistory) Clear(context.Context) error { return nil }
