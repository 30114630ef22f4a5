package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	l3agi "github.com/psyuktha/L3AGI"
)

type Config struct {
	OpenAI   OpenAIConfig   `toml:"openai"`
	Zep      ZepConfig      `toml:"zep"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Voice    VoiceConfig    `toml:"voice"`
	S3       S3Config       `toml:"s3"`
	Agent    AgentConfig    `toml:"agent"`
	Observer ObserverConfig `toml:"observer"`
}

type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// ZepConfig enables session memory when APIURL is set.
type ZepConfig struct {
	APIURL string `toml:"api_url"`
	APIKey string `toml:"api_key"`
	LastN  int    `toml:"last_n"`
}

// DatabaseConfig selects the message store. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
	URL    string `toml:"url"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

type VoiceConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type S3Config struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	Prefix    string `toml:"prefix"`
	PublicURL string `toml:"public_url"`
}

// AgentConfig is the agent used by the CLI. Identity and behaviour fields
// share the [agent] table.
type AgentConfig struct {
	l3agi.Agent
	l3agi.AgentConfigs
	HistoryLimit int `toml:"history_limit"`
}

type ObserverConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Zep:      ZepConfig{LastN: 20},
		Database: DatabaseConfig{Driver: "sqlite", Path: "l3agi.db"},
		Redis:    RedisConfig{Prefix: "chat:"},
		Agent: AgentConfig{
			Agent: l3agi.Agent{ID: "default", Name: "L3AGI", Role: "Assistant"},
			AgentConfigs: l3agi.AgentConfigs{
				Model:        "gpt-4o-mini",
				ResponseMode: []string{"Text"},
				InputMode:    []string{"Text"},
			},
			HistoryLimit: 50,
		},
		Observer: ObserverConfig{ServiceName: "l3agi"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
// An empty path falls back to $L3AGI_CONFIG, then l3agi.toml. A file that
// fails to parse is ignored with a warning on logger, which may be nil.
func Load(path string, logger *slog.Logger) Config {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg := Default()

	if path == "" {
		path = os.Getenv("L3AGI_CONFIG")
	}
	if path == "" {
		path = "l3agi.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			logger.Warn("config file ignored", "path", path, "error", err)
			cfg = Default()
		}
	}

	// Env overrides
	if v := os.Getenv("L3AGI_OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("L3AGI_ZEP_API_URL"); v != "" {
		cfg.Zep.APIURL = v
	}
	if v := os.Getenv("L3AGI_ZEP_API_KEY"); v != "" {
		cfg.Zep.APIKey = v
	}
	if v := os.Getenv("L3AGI_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
		cfg.Database.Driver = "postgres"
	}
	if v := os.Getenv("L3AGI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("L3AGI_S3_BUCKET"); v != "" {
		cfg.S3.Bucket = v
	}
	if v := os.Getenv("L3AGI_OBSERVER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Observer.Enabled = b
		}
	}

	// Fallbacks
	if cfg.Voice.APIKey == "" {
		cfg.Voice.APIKey = cfg.OpenAI.APIKey
	}
	if cfg.Voice.BaseURL == "" {
		cfg.Voice.BaseURL = cfg.OpenAI.BaseURL
	}

	return cfg
}

// AccountSettings returns the provider credentials for a run.
func (c Config) AccountSettings() l3agi.AccountSettings {
	return l3agi.AccountSettings{OpenAIAPIKey: c.OpenAI.APIKey, OpenAIBaseURL: c.OpenAI.BaseURL}
}

// VoiceSettings returns the speech provider settings for a run.
func (c Config) VoiceSettings() l3agi.AccountVoiceSettings {
	return l3agi.AccountVoiceSettings{APIKey: c.Voice.APIKey, BaseURL: c.Voice.BaseURL}
}

// AgentWithConfigs returns the configured agent.
func (c Config) AgentWithConfigs() l3agi.AgentWithConfigs {
	return l3agi.AgentWithConfigs{Agent: c.Agent.Agent, Configs: c.Agent.AgentConfigs}
}
