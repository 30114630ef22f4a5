package langchain

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	l3agi "github.com/psyuktha/L3AGI"
)

// ModelFunc builds the chat model for one run.
type ModelFunc func(settings l3agi.AccountSettings, cfg l3agi.AgentConfigs) (llms.Model, error)

// Factory returns an l3agi.EngineFactory building a fresh Engine per run.
// newModel defaults to NewLLM. opts are applied after the run's own
// configuration, so they can override it.
func Factory(newModel ModelFunc, opts ...Option) l3agi.EngineFactory {
	if newModel == nil {
		newModel = NewLLM
	}
	return func(_ context.Context, cfg l3agi.EngineConfig) (l3agi.Engine, error) {
		llm, err := newModel(cfg.Settings, cfg.Agent.Configs)
		if err != nil {
			return nil, err
		}
		all := []Option{
			WithTools(cfg.Tools...),
			WithSystemMessage(cfg.SystemMessage),
			WithMaxIterations(cfg.Agent.Configs.MaxIterations),
		}
		if cfg.Memory != nil {
			all = append(all, WithMemory(cfg.Memory))
		}
		if cfg.RunLogs != nil {
			all = append(all, WithRunLogs(cfg.RunLogs, cfg.SessionID, cfg.Agent.Agent.ID))
		}
		return New(llm, append(all, opts...)...), nil
	}
}
