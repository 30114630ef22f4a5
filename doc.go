// Package l3agi runs conversational and multi-agent LLM interactions on top of
// an external agent-execution engine, a memory service and a chat message
// store, with optional voice input and output.
//
// # Streaming answers
//
// An [Engine] emits [StreamEvent] values while it reasons. Content fragments
// ([EventChatModelStream]) include the engine's intermediate thoughts; only
// the text after the "Final Answer:" marker is meant for the user. [AnswerRun]
// watches the fragment stream and forwards just that text, and [StreamAnswer]
// wires an engine to an AnswerRun:
//
//	out := make(chan string)
//	go func() {
//		for fragment := range out {
//			fmt.Print(fragment)
//		}
//	}()
//	result, err := l3agi.StreamAnswer(ctx, engine, map[string]any{"input": prompt}, out)
//
// The streamed fragments are best-effort. The returned result is rebuilt from
// the full response after the stream ends and is what gets persisted.
//
// # Agents
//
//   - [ConversationalAgent]: one chat session: transcription, streaming,
//     speech synthesis, persistence ([MessageStore]) and delivery ([Publisher]).
//   - [DialogueAgent]: one participant of a multi-agent conversation.
//
// # Included Implementations
//
// Engine: engine/langchain. Memory: memory/zep. Stores: store/postgres,
// store/sqlite. Delivery: pubsub/redis. Speech: voice, voice/s3.
// Telemetry: observer. Offline evaluation: eval.
package l3agi
