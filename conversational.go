package l3agi

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ChatHistoryKey is the memory variable holding prior turns.
const ChatHistoryKey = "chat_history"

// ConversationalAgent answers one chat session, streaming the final answer as
// it is produced and persisting the reply when the run ends.
type ConversationalAgent struct {
	sessionID  string
	senderName string
	cfg        agentConfig
}

// NewConversationalAgent returns an agent for sessionID. senderName labels the
// human side of the conversation in memory.
func NewConversationalAgent(sessionID, senderName string, newEngine EngineFactory, opts ...AgentOption) *ConversationalAgent {
	return &ConversationalAgent{
		sessionID:  sessionID,
		senderName: senderName,
		cfg:        buildConfig(newEngine, opts),
	}
}

// RunRequest is the input of one conversational run. All configuration is
// carried explicitly; nothing is looked up globally.
type RunRequest struct {
	Settings      AccountSettings
	VoiceSettings AccountVoiceSettings
	Agent         AgentWithConfigs
	Tools         []Tool
	Prompt        string
	// VoiceURL, when set, is transcribed and replaces Prompt.
	VoiceURL            string
	HumanMessageID      string
	PreRetrievedContext string
}

// Run answers req. Final-answer fragments are sent to out as they stream in.
// If the run fails, the user-facing error text is sent instead. When speech
// synthesis fails, the answer with the error appended is sent again. out is
// closed before Run returns.
//
// The reply is persisted and published even when the run fails. Run only
// returns an error if persisting or publishing the reply fails.
func (a *ConversationalAgent) Run(ctx context.Context, req RunRequest, out chan<- string) (ChatMessage, error) {
	defer close(out)
	start := time.Now()
	logger := a.cfg.logger.With("session_id", a.sessionID, "agent_id", req.Agent.Agent.ID)

	var mem Memory
	if a.cfg.newMemory != nil {
		mem = a.cfg.newMemory(a.sessionID, a.senderName, req.Agent.Agent.Name)
	}
	systemMessage := NewSystemMessageBuilder(req.Agent, req.PreRetrievedContext).Build()

	prompt := req.Prompt
	result, err := a.answer(ctx, req, systemMessage, mem, &prompt, out)
	if err != nil {
		logger.Error("agent run failed", "error", err)
		result = HandleAgentError(err)
		if mem != nil {
			if serr := a.saveFailedTurn(context.WithoutCancel(ctx), mem, prompt, result); serr != nil {
				logger.Warn("memory save failed", "error", serr)
			}
		}
		send(ctx, out, result)
	}

	var voiceURL string
	if req.Agent.Configs.VoiceResponse() {
		url, serr := a.speak(ctx, req, result)
		if serr != nil {
			logger.Error("speech synthesis failed", "error", serr)
			result = result + "\n\n" + HandleAgentError(serr)
			send(ctx, out, result)
		} else {
			voiceURL = url
		}
	}

	msg := NewAIMessage(a.sessionID, result, req.HumanMessageID, req.Agent.Agent.ID, voiceURL)
	if err := a.deliver(context.WithoutCancel(ctx), msg); err != nil {
		return msg, err
	}

	logger.Info("agent run completed",
		"failed", err != nil,
		"voice", voiceURL != "",
		"duration_ms", time.Since(start).Milliseconds())
	return msg, nil
}

// answer runs the engine and forwards the streamed answer to out. prompt is
// updated in place when the input was transcribed from speech.
func (a *ConversationalAgent) answer(ctx context.Context, req RunRequest, systemMessage string, mem Memory, prompt *string, out chan<- string) (string, error) {
	if req.VoiceURL != "" {
		if a.cfg.transcriber == nil {
			return "", errors.New("voice input received but no transcriber is configured")
		}
		text, err := a.cfg.transcriber.SpeechToText(ctx, req.VoiceURL, req.Agent.Configs, req.VoiceSettings)
		if err != nil {
			return "", fmt.Errorf("speech to text: %w", err)
		}
		*prompt = text
	}

	if a.cfg.newEngine == nil {
		return "", errors.New("no engine factory configured")
	}
	engine, err := a.cfg.newEngine(ctx, EngineConfig{
		Settings:      req.Settings,
		Agent:         req.Agent,
		Tools:         req.Tools,
		Memory:        mem,
		SystemMessage: systemMessage,
		RunLogs:       a.cfg.runLogs,
		SessionID:     a.sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("build engine: %w", err)
	}

	fragments := make(chan string)
	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := StreamAnswer(ctx, engine, map[string]any{InputKey: *prompt}, fragments)
		done <- outcome{r, err}
	}()
	for f := range fragments {
		send(ctx, out, f)
	}
	o := <-done
	return o.result, o.err
}

func (a *ConversationalAgent) speak(ctx context.Context, req RunRequest, text string) (string, error) {
	if a.cfg.synthesizer == nil {
		return "", errors.New("voice response requested but no synthesizer is configured")
	}
	return a.cfg.synthesizer.TextToSpeech(ctx, text, req.Agent.Configs, req.VoiceSettings)
}

// saveFailedTurn records the prompt and the error reply so the next turn sees them.
func (a *ConversationalAgent) saveFailedTurn(ctx context.Context, mem Memory, prompt, reply string) error {
	vars, err := mem.LoadMemoryVariables(ctx, map[string]any{})
	if err != nil {
		return err
	}
	inputs := map[string]any{
		InputKey:       prompt,
		ChatHistoryKey: vars[mem.GetMemoryKey(ctx)],
	}
	return mem.SaveContext(ctx, inputs, map[string]any{"output": reply})
}

func (a *ConversationalAgent) deliver(ctx context.Context, msg ChatMessage) error {
	if a.cfg.history != nil {
		if err := a.cfg.history.StoreMessage(ctx, msg); err != nil {
			return fmt.Errorf("store ai message: %w", err)
		}
	}
	if a.cfg.publisher != nil {
		if err := a.cfg.publisher.SendChatMessage(ctx, msg); err != nil {
			return fmt.Errorf("publish ai message: %w", err)
		}
	}
	return nil
}

// send delivers s to out unless ctx is done first.
func send(ctx context.Context, out chan<- string, s string) bool {
	select {
	case out <- s:
		return true
	case <-ctx.Done():
		return false
	}
}
