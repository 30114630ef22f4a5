// Package langchain implements l3agi.Engine on top of langchaingo's agent
// executor and its MRKL one-shot agent, whose final step is introduced by the
// literal "Final Answer:" marker.
package langchain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/tools"

	l3agi "github.com/psyuktha/L3AGI"
)

// outputKey is the executor output holding the final answer.
const outputKey = "output"

// Engine runs one agent configuration. It is safe to call StreamEvents and
// Invoke more than once; each call builds a fresh executor.
type Engine struct {
	llm           llms.Model
	tools         []tools.Tool
	memory        schema.Memory
	systemMessage string
	maxIterations int
	runLogs       l3agi.RunLogStore
	sessionID     string
	agentID       string
	logger        *slog.Logger
}

var _ l3agi.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithTools sets the tools the agent may call.
func WithTools(t ...tools.Tool) Option {
	return func(e *Engine) { e.tools = append(e.tools, t...) }
}

// WithMemory sets the conversation memory. Its memory key must be
// l3agi.ChatHistoryKey and it must load the history as a string.
func WithMemory(m schema.Memory) Option {
	return func(e *Engine) { e.memory = m }
}

// WithSystemMessage sets the text placed at the top of the agent prompt.
func WithSystemMessage(s string) Option {
	return func(e *Engine) { e.systemMessage = s }
}

// WithMaxIterations bounds the reasoning loop. n <= 0 keeps the executor default.
func WithMaxIterations(n int) Option {
	return func(e *Engine) { e.maxIterations = n }
}

// WithRunLogs records tool calls and agent steps to s.
func WithRunLogs(s l3agi.RunLogStore, sessionID, agentID string) Option {
	return func(e *Engine) {
		e.runLogs = s
		e.sessionID = sessionID
		e.agentID = agentID
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an engine driving llm.
func New(llm llms.Model, opts ...Option) *Engine {
	e := &Engine{llm: llm}
	for _, opt := range opts {
		opt(e)
	}
	if e.memory == nil {
		e.memory = noHistory{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// StreamEvents runs the agent and sends its events to ch, closing ch on return.
func (e *Engine) StreamEvents(ctx context.Context, input map[string]any, ch chan<- l3agi.StreamEvent) error {
	defer close(ch)
	rec := e.recorder(ch)
	if _, err := chains.Call(ctx, e.executor(rec), input); err != nil {
		return fmt.Errorf("langchain: stream: %w", err)
	}
	return nil
}

// Invoke runs the agent to completion and returns the text after the final
// answer marker.
func (e *Engine) Invoke(ctx context.Context, input map[string]any) (string, error) {
	out, err := chains.Call(ctx, e.executor(e.recorder(nil)), input)
	if err != nil {
		return "", fmt.Errorf("langchain: invoke: %w", err)
	}
	s, ok := out[outputKey].(string)
	if !ok {
		return "", fmt.Errorf("langchain: invoke: output is %T, not string", out[outputKey])
	}
	return strings.TrimSpace(s), nil
}

func (e *Engine) recorder(ch chan<- l3agi.StreamEvent) *recorder {
	return &recorder{
		ch:        ch,
		runLogs:   e.runLogs,
		sessionID: e.sessionID,
		agentID:   e.agentID,
		logger:    e.logger,
	}
}

func (e *Engine) executor(rec *recorder) *agents.Executor {
	wrapped := make([]tools.Tool, len(e.tools))
	for i, t := range e.tools {
		wrapped[i] = observedTool{Tool: t, rec: rec}
	}

	agent := agents.NewOneShotAgent(observedModel{Model: e.llm, rec: rec}, wrapped,
		agents.WithPrompt(agentPrompt(e.systemMessage, wrapped)),
		agents.WithCallbacksHandler(streamHandler{rec: rec}),
	)
	opts := []agents.Option{
		agents.WithMemory(e.memory),
		agents.WithCallbacksHandler(eventHandler{streamHandler{rec: rec}}),
	}
	if e.maxIterations > 0 {
		opts = append(opts, agents.WithMaxIterations(e.maxIterations))
	}
	return agents.NewExecutor(agent, opts...)
}

const agentTemplate = `{{.system_message}}

You have access to the following tools:

{{.tool_descriptions}}

Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [ {{.tool_names}} ]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question

Today is {{.today}}.

Previous conversation:
{{.chat_history}}

Begin!

Question: {{.input}}
{{.agent_scratchpad}}`

// agentPrompt renders the MRKL prompt. The system message and tool list are
// bound as partial variables so their text is never parsed as a template.
func agentPrompt(systemMessage string, ts []tools.Tool) prompts.PromptTemplate {
	names := make([]string, len(ts))
	var desc strings.Builder
	for i, t := range ts {
		names[i] = t.Name()
		fmt.Fprintf(&desc, "- %s: %s\n", t.Name(), t.Description())
	}
	if len(ts) == 0 {
		desc.WriteString("(no tools available)")
	}

	return prompts.PromptTemplate{
		Template:       agentTemplate,
		TemplateFormat: prompts.TemplateFormatGoTemplate,
		InputVariables: []string{l3agi.InputKey, l3agi.ChatHistoryKey, "agent_scratchpad", "today"},
		PartialVariables: map[string]any{
			"system_message":    systemMessage,
			"tool_names":        strings.Join(names, ", "),
			"tool_descriptions": strings.TrimRight(desc.String(), "\n"),
		},
	}
}
