package l3agi

import "context"

// Transcriber converts recorded speech to text.
type Transcriber interface {
	SpeechToText(ctx context.Context, audioURL string, cfg AgentConfigs, settings AccountVoiceSettings) (string, error)
}

// Synthesizer converts text to speech and returns where the audio can be fetched.
type Synthesizer interface {
	TextToSpeech(ctx context.Context, text string, cfg AgentConfigs, settings AccountVoiceSettings) (string, error)
}
