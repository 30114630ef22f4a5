package langchain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	l3agi "github.com/psyuktha/L3AGI"
)

// recorder fans one run's steps out to the event channel and the run log store.
// Either may be nil.
type recorder struct {
	ch        chan<- l3agi.StreamEvent
	runLogs   l3agi.RunLogStore
	sessionID string
	agentID   string
	logger    *slog.Logger
}

// emit sends ev unless ctx is done. Dropped events are not retried.
func (r *recorder) emit(ctx context.Context, ev l3agi.StreamEvent) {
	if r.ch == nil {
		return
	}
	select {
	case r.ch <- ev:
	case <-ctx.Done():
	}
}

func (r *recorder) log(ctx context.Context, kind, name, input, output string) {
	if r.runLogs == nil {
		return
	}
	entry := l3agi.RunLog{
		ID:        l3agi.NewID(),
		SessionID: r.sessionID,
		AgentID:   r.agentID,
		Kind:      kind,
		Name:      name,
		Input:     input,
		Output:    output,
		CreatedAt: l3agi.NowUnix(),
	}
	if err := r.runLogs.StoreRunLog(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Warn("store run log failed", "kind", kind, "session_id", r.sessionID, "error", err)
	}
}

// streamHandler is attached to the agent. It only forwards model tokens.
type streamHandler struct {
	callbacks.SimpleHandler
	rec *recorder
}

func (h streamHandler) HandleStreamingFunc(ctx context.Context, chunk []byte) {
	h.rec.emit(ctx, l3agi.ContentDelta(string(chunk)))
}

// observedModel reports every model call of the agent as a chat model start
// event. The executor's handler never sees the model's own callbacks.
type observedModel struct {
	llms.Model
	rec *recorder
}

func (m observedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.rec.emit(ctx, l3agi.StreamEvent{Kind: l3agi.EventChatModelStart})
	return m.Model.GenerateContent(ctx, messages, options...)
}

func (m observedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// eventHandler is attached to the executor and reports the run's lifecycle.
type eventHandler struct {
	streamHandler
}

var _ callbacks.Handler = eventHandler{}

func (h eventHandler) HandleChainStart(ctx context.Context, inputs map[string]any) {
	h.rec.emit(ctx, l3agi.StreamEvent{
		Kind: l3agi.EventChainStart,
		Data: l3agi.EventData{Input: stringValue(inputs[l3agi.InputKey])},
	})
}

func (h eventHandler) HandleChainEnd(ctx context.Context, outputs map[string]any) {
	h.rec.emit(ctx, l3agi.StreamEvent{
		Kind: l3agi.EventChainEnd,
		Data: l3agi.EventData{Output: stringValue(outputs[outputKey])},
	})
}

func (h eventHandler) HandleAgentAction(ctx context.Context, action schema.AgentAction) {
	h.rec.emit(ctx, l3agi.StreamEvent{
		Kind: l3agi.EventAgentAction,
		Name: action.Tool,
		Data: l3agi.EventData{Input: action.ToolInput},
	})
	h.rec.log(ctx, l3agi.RunLogAgentAction, action.Tool, action.ToolInput, action.Log)
}

func (h eventHandler) HandleAgentFinish(ctx context.Context, finish schema.AgentFinish) {
	out := stringValue(finish.ReturnValues[outputKey])
	h.rec.emit(ctx, l3agi.StreamEvent{
		Kind: l3agi.EventAgentFinish,
		Data: l3agi.EventData{Output: out},
	})
	h.rec.log(ctx, l3agi.RunLogAgentFinish, "", "", out)
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
