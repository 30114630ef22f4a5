package langchain

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	l3agi "github.com/psyuktha/L3AGI"
)

// DefaultModel is used when the agent does not name one.
const DefaultModel = "gpt-4o-mini"

// NewLLM builds the chat model for an agent from the account's credentials.
func NewLLM(settings l3agi.AccountSettings, cfg l3agi.AgentConfigs) (llms.Model, error) {
	if settings.OpenAIAPIKey == "" {
		return nil, &l3agi.ErrLLM{Provider: "openai", Message: "no API key configured for this account"}
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(settings.OpenAIAPIKey),
	}
	if settings.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(settings.OpenAIBaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("langchain: new llm: %w", err)
	}
	return WithRetry(WithTemperature(llm, cfg.Temperature)), nil
}

// WithTemperature returns m with temperature t applied to every call.
// Options passed by the caller still take precedence.
func WithTemperature(m llms.Model, t float64) llms.Model {
	return temperatureModel{Model: m, temperature: t}
}

type temperatureModel struct {
	llms.Model
	temperature float64
}

func (m temperatureModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := append([]llms.CallOption{llms.WithTemperature(m.temperature)}, options...)
	return m.Model.GenerateContent(ctx, messages, opts...)
}

func (m temperatureModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
