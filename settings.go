package l3agi

import "strings"

// AccountSettings holds the per-account provider credentials for a run.
type AccountSettings struct {
	OpenAIAPIKey  string `json:"openai_api_key" toml:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url,omitempty" toml:"openai_base_url"`
}

// AccountVoiceSettings holds the per-account speech provider settings.
type AccountVoiceSettings struct {
	APIKey  string `json:"api_key" toml:"api_key"`
	BaseURL string `json:"base_url,omitempty" toml:"base_url"`
}

// Agent identifies the agent that answers a chat.
type Agent struct {
	ID          string `json:"id" toml:"id"`
	Name        string `json:"name" toml:"name"`
	Role        string `json:"role" toml:"role"`
	Description string `json:"description" toml:"description"`
}

// ResponseModeVoice enables speech synthesis of the answer.
const ResponseModeVoice = "Voice"

// AgentConfigs is the behavioural configuration of an agent.
type AgentConfigs struct {
	Model        string   `json:"model" toml:"model"`
	Temperature  float64  `json:"temperature" toml:"temperature"`
	Goals        []string `json:"goals" toml:"goals"`
	Constraints  []string `json:"constraints" toml:"constraints"`
	Instructions []string `json:"instructions" toml:"instructions"`
	Tools        []string `json:"tools" toml:"tools"`
	Greeting     string   `json:"greeting" toml:"greeting"`
	Text         string   `json:"text" toml:"text"` // free-form base system message
	// ResponseMode lists output channels, e.g. ["Text", "Voice"].
	ResponseMode []string `json:"response_mode" toml:"response_mode"`
	// InputMode lists accepted input channels, e.g. ["Text", "Voice"].
	InputMode []string `json:"input_mode" toml:"input_mode"`
	// Synthesizer and Transcriber name the speech models.
	Synthesizer string `json:"synthesizer" toml:"synthesizer"`
	Transcriber string `json:"transcriber" toml:"transcriber"`
	// VoiceID selects the synthesized voice.
	VoiceID string `json:"voice_id" toml:"voice_id"`
	// MaxIterations bounds the engine's reasoning loop. 0 uses the engine default.
	MaxIterations int `json:"max_iterations" toml:"max_iterations"`
}

// VoiceResponse reports whether answers should be synthesized to speech.
func (c AgentConfigs) VoiceResponse() bool {
	for _, m := range c.ResponseMode {
		if strings.EqualFold(strings.TrimSpace(m), ResponseModeVoice) {
			return true
		}
	}
	return false
}

// AgentWithConfigs pairs an agent with its configuration.
type AgentWithConfigs struct {
	Agent   Agent        `json:"agent" toml:"agent"`
	Configs AgentConfigs `json:"configs" toml:"configs"`
}
