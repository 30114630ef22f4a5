package l3agi

import (
	"context"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/tools"
)

// Engine runs an agent's reasoning loop. Tool execution, model inference and
// memory retrieval all happen inside the engine; callers only see events.
type Engine interface {
	// StreamEvents runs the agent on input and sends every event to ch.
	// Implementations must close ch before returning and must stop sending
	// once ctx is done.
	StreamEvents(ctx context.Context, input map[string]any, ch chan<- StreamEvent) error
	// Invoke runs the agent to completion and returns its final output.
	Invoke(ctx context.Context, input map[string]any) (string, error)
}

// Tool is an opaque capability handed to the engine. Nothing outside the
// engine inspects it.
type Tool = tools.Tool

// Memory is the conversation memory handed to the engine. LoadMemoryVariables
// loads prior turns, SaveContext records a new one.
type Memory = schema.Memory

// EngineConfig is everything an EngineFactory needs to build one run's engine.
type EngineConfig struct {
	Settings      AccountSettings
	Agent         AgentWithConfigs
	Tools         []Tool
	Memory        Memory // nil disables memory
	SystemMessage string
	RunLogs       RunLogStore // nil disables run logging
	SessionID     string
}

// EngineFactory builds an Engine for a single run.
type EngineFactory func(ctx context.Context, cfg EngineConfig) (Engine, error)

// InputKey is the engine input key holding the user prompt.
const InputKey = "input"
