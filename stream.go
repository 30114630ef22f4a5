package l3agi

// StreamEventKind identifies the kind of event emitted by an Engine run.
type StreamEventKind string

const (
	// EventChatModelStream carries an incremental content fragment from the model.
	// It is the only kind the answer extractor reads.
	EventChatModelStream StreamEventKind = "on_chat_model_stream"
	// EventChatModelStart signals a model call is about to begin.
	EventChatModelStart StreamEventKind = "on_chat_model_start"
	// EventChainStart signals the executor has accepted the input.
	EventChainStart StreamEventKind = "on_chain_start"
	// EventChainEnd signals the executor produced its outputs.
	EventChainEnd StreamEventKind = "on_chain_end"
	// EventToolStart carries the input passed to a tool.
	EventToolStart StreamEventKind = "on_tool_start"
	// EventToolEnd carries the tool observation.
	EventToolEnd StreamEventKind = "on_tool_end"
	// EventAgentAction signals the agent decided to call a tool (Name is the tool).
	EventAgentAction StreamEventKind = "on_agent_action"
	// EventAgentFinish signals the agent reached a final answer.
	EventAgentFinish StreamEventKind = "on_agent_finish"
)

// StreamEvent is a typed event emitted during an Engine run.
type StreamEvent struct {
	// Kind identifies the event.
	Kind StreamEventKind `json:"event"`
	// Name is the tool name for tool/action events, empty otherwise.
	Name string `json:"name,omitempty"`
	// Data is the event payload.
	Data EventData `json:"data"`
}

// EventData is the payload of a StreamEvent.
type EventData struct {
	// Chunk is set for EventChatModelStream.
	Chunk Chunk `json:"chunk"`
	// Input carries tool input or chain input text.
	Input string `json:"input,omitempty"`
	// Output carries tool output or the agent's final output.
	Output string `json:"output,omitempty"`
}

// Chunk is one incremental piece of model output.
type Chunk struct {
	Content string `json:"content"`
}

// ContentDelta returns a model content event for fragment.
func ContentDelta(fragment string) StreamEvent {
	return StreamEvent{Kind: EventChatModelStream, Data: EventData{Chunk: Chunk{Content: fragment}}}
}
