package l3agi

import (
	"context"
	"fmt"
	"strings"
)

// DialogueAgent is one participant of a multi-agent conversation. It keeps
// the shared transcript and answers in a single non-streamed engine call.
// Who speaks next is decided by the caller.
type DialogueAgent struct {
	name          string
	sessionID     string
	senderName    string
	agent         AgentWithConfigs
	systemMessage string
	settings      AccountSettings
	tools         []Tool
	cfg           agentConfig

	prefix  string
	history []string
}

// DialogueConfig describes a dialogue participant.
type DialogueConfig struct {
	Name          string
	SessionID     string
	SenderName    string
	Agent         AgentWithConfigs
	SystemMessage string
	Settings      AccountSettings
	Tools         []Tool
}

// NewDialogueAgent returns a participant with an empty transcript. Memory set
// with WithMemory is read on every turn but never written by the engine.
func NewDialogueAgent(dc DialogueConfig, newEngine EngineFactory, opts ...AgentOption) *DialogueAgent {
	d := &DialogueAgent{
		name:          dc.Name,
		sessionID:     dc.SessionID,
		senderName:    dc.SenderName,
		agent:         dc.Agent,
		systemMessage: dc.SystemMessage,
		settings:      dc.Settings,
		tools:         dc.Tools,
		cfg:           buildConfig(newEngine, opts),
		prefix:        dc.Name + ": ",
	}
	d.Reset()
	return d
}

// Name returns the participant's name.
func (d *DialogueAgent) Name() string { return d.name }

// Reset clears the transcript.
func (d *DialogueAgent) Reset() {
	d.history = []string{"Here is the conversation so far."}
}

// Receive appends a message from name to the transcript.
func (d *DialogueAgent) Receive(name, message string) {
	d.history = append(d.history, name+": "+message)
}

// History returns a copy of the transcript.
func (d *DialogueAgent) History() []string {
	return append([]string(nil), d.history...)
}

// Send produces this participant's next message from the transcript.
func (d *DialogueAgent) Send(ctx context.Context) (string, error) {
	if d.cfg.newEngine == nil {
		return "", fmt.Errorf("dialogue %s: no engine factory configured", d.name)
	}

	var mem Memory
	if d.cfg.newMemory != nil {
		mem = readOnlyMemory{d.cfg.newMemory(d.sessionID, d.senderName, d.agent.Agent.Name)}
	}

	engine, err := d.cfg.newEngine(ctx, EngineConfig{
		Settings:      d.settings,
		Agent:         d.agent,
		Tools:         d.tools,
		Memory:        mem,
		SystemMessage: d.systemMessage,
		RunLogs:       d.cfg.runLogs,
		SessionID:     d.sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("dialogue %s: build engine: %w", d.name, err)
	}

	prompt := strings.Join(append(d.History(), d.prefix), "\n")
	out, err := engine.Invoke(ctx, map[string]any{InputKey: prompt})
	if err != nil {
		d.cfg.logger.Error("dialogue turn failed", "agent", d.name, "error", err)
		return "", fmt.Errorf("dialogue %s: %w", d.name, err)
	}
	d.cfg.logger.Debug("dialogue turn", "agent", d.name, "chars", len(out))
	return strings.TrimSpace(out), nil
}

// readOnlyMemory loads history but drops writes.
type readOnlyMemory struct {
	Memory
}

func (readOnlyMemory) SaveContext(context.Context, map[string]any, map[string]any) error { return nil }
