package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for agent run spans and metrics.
var (
	AttrAgentID   = attribute.Key("agent.id")
	AttrAgentName = attribute.Key("agent.name")
	AttrLLMModel  = attribute.Key("llm.model")
	AttrSessionID = attribute.Key("session.id")

	AttrEngineMethod = attribute.Key("engine.method")
	AttrEngineStatus = attribute.Key("engine.status")
	AttrStreamChunks = attribute.Key("engine.stream_chunks")
	AttrAnswerLength = attribute.Key("engine.answer_length")

	AttrToolName         = attribute.Key("tool.name")
	AttrToolStatus       = attribute.Key("tool.status")
	AttrToolResultLength = attribute.Key("tool.result_length")

	AttrSpeechOp     = attribute.Key("speech.op")
	AttrSpeechModel  = attribute.Key("speech.model")
	AttrSpeechStatus = attribute.Key("speech.status")
)
