package langchain

import (
	"context"

	"github.com/tmc/langchaingo/tools"

	l3agi "github.com/psyuktha/L3AGI"
)

// observedTool reports each call of the wrapped tool as tool start/end events.
type observedTool struct {
	tools.Tool
	rec *recorder
}

func (t observedTool) Call(ctx context.Context, input string) (string, error) {
	name := t.Name()
	t.rec.emit(ctx, l3agi.StreamEvent{
		Kind: l3agi.EventToolStart,
		Name: name,
		Data: l3agi.EventData{Input: input},
	})
	t.rec.log(ctx, l3agi.RunLogToolStart, name, input, "")

	out, err := t.Tool.Call(ctx, input)
	if err != nil {
		t.rec.log(ctx, l3agi.RunLogToolError, name, input, err.Error())
		return out, err
	}

	t.rec.emit(ctx, l3agi.StreamEvent{
		Kind: l3agi.EventToolEnd,
		Name: name,
		Data: l3agi.EventData{Input: input, Output: out},
	})
	t.rec.log(ctx, l3agi.RunLogToolEnd, name, input, out)
	return out, nil
}
