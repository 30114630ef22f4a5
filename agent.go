package l3agi

import "log/slog"

// MemoryFactory builds the memory for one session. humanName and aiName label
// the two sides of the conversation in the stored history.
type MemoryFactory func(sessionID, humanName, aiName string) Memory

// agentConfig holds shared configuration for ConversationalAgent and DialogueAgent.
type agentConfig struct {
	newEngine   EngineFactory
	newMemory   MemoryFactory
	history     MessageStore
	publisher   Publisher
	transcriber Transcriber
	synthesizer Synthesizer
	runLogs     RunLogStore
	logger      *slog.Logger
}

// AgentOption configures a ConversationalAgent or DialogueAgent.
type AgentOption func(*agentConfig)

// WithMemory sets how session memory is built. Without it runs are stateless.
func WithMemory(f MemoryFactory) AgentOption {
	return func(c *agentConfig) { c.newMemory = f }
}

// WithHistory sets the store AI replies are persisted to.
func WithHistory(s MessageStore) AgentOption {
	return func(c *agentConfig) { c.history = s }
}

// WithPublisher sets the transport AI replies are delivered on.
func WithPublisher(p Publisher) AgentOption {
	return func(c *agentConfig) { c.publisher = p }
}

// WithTranscriber enables voice input.
func WithTranscriber(t Transcriber) AgentOption {
	return func(c *agentConfig) { c.transcriber = t }
}

// WithSynthesizer enables voice output for agents whose response mode includes Voice.
func WithSynthesizer(s Synthesizer) AgentOption {
	return func(c *agentConfig) { c.synthesizer = s }
}

// WithRunLogs records engine steps to s.
func WithRunLogs(s RunLogStore) AgentOption {
	return func(c *agentConfig) { c.runLogs = s }
}

// WithLogger sets the structured logger. If not set, a no-op logger is used.
func WithLogger(l *slog.Logger) AgentOption {
	return func(c *agentConfig) { c.logger = l }
}

// nopLogger is a logger that discards all output. Used when WithLogger is not set.
var nopLogger = slog.New(slog.DiscardHandler)

func buildConfig(newEngine EngineFactory, opts []AgentOption) agentConfig {
	c := agentConfig{newEngine: newEngine}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = nopLogger
	}
	return c
}
