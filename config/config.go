package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	groqBaseURL = "https://api.groq.com/openai/v1"
)

// Config stores all configuration of the service.
// Values come from the process environment, optionally seeded from a .env file.
type Config struct {
	Port        string        `mapstructure:"port"`
	DatabaseURL string        `mapstructure:"db_url"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	LLM    LLMConfig    `mapstructure:"llm"`
	GitHub GitHubConfig `mapstructure:"github"`
	Tavily TavilyConfig `mapstructure:"tavily"`
	Agent  AgentConfig  `mapstructure:"agent"`
}

// LLMConfig selects and parameterises the model backend.
type LLMConfig struct {
	Provider        string  `mapstructure:"provider"`          // "groq", "openai", "anthropic"
	Model           string  `mapstructure:"model"`             // empty means provider default
	BaseURL         string  `mapstructure:"base_url"`          // OpenAI-compatible endpoint
	APIKey          string  `mapstructure:"api_key"`           // LLM_API_KEY, overrides the provider key
	GroqAPIKey      string  `mapstructure:"groq_api_key"`
	OpenAIAPIKey    string  `mapstructure:"openai_api_key"`
	AnthropicAPIKey string  `mapstructure:"anthropic_api_key"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens"`
}

type GitHubConfig struct {
	Token  string `mapstructure:"token"`
	APIURL string `mapstructure:"api_url"`
}

type TavilyConfig struct {
	APIKey string `mapstructure:"api_key"`
	APIURL string `mapstructure:"api_url"`
}

type AgentConfig struct {
	MaxToolCalls       int  `mapstructure:"max_tool_calls"`
	EscalateToolErrors bool `mapstructure:"escalate_tool_errors"`
}

// Load reads the given .env files (".env" when none are given), then binds the
// environment on top of the defaults. Variables already set in the process
// win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := bindSecrets(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderGroq
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "5000")
	v.SetDefault("db_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("http_timeout", 30*time.Second)

	v.SetDefault("llm.provider", ProviderGroq)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.6)
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("tavily.api_url", "https://api.tavily.com")

	v.SetDefault("agent.max_tool_calls", 5)
	v.SetDefault("agent.escalate_tool_errors", false)
}

// bindSecrets maps keys whose env names do not follow the section_key pattern.
func bindSecrets(v *viper.Viper) error {
	bindings := map[string][]string{
		"llm.api_key":           {"LLM_API_KEY"},
		"llm.groq_api_key":      {"GROQ_API_KEY"},
		"llm.openai_api_key":    {"OPENAI_API_KEY"},
		"llm.anthropic_api_key": {"ANTHROPIC_API_KEY"},
		"github.token":          {"GITHUB_TOKEN"},
		"tavily.api_key":        {"TAVILY_API_KEY"},
		"db_url":                {"DB_URL", "DATABASE_URL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Key returns the credential for the selected provider. LLM_API_KEY wins when
// set; otherwise only that provider's own key is used.
func (c LLMConfig) Key() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch c.Provider {
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderGroq:
		return c.GroqAPIKey
	default:
		return ""
	}
}

// ResolvedModel returns the configured model or the provider default.
func (c LLMConfig) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case ProviderAnthropic:
		return "claude-sonnet-4-20250514"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	default:
		return "llama3-8b-8192"
	}
}

// ResolvedBaseURL returns the OpenAI-compatible endpoint. An empty result
// means the client library default.
func (c LLMConfig) ResolvedBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Provider == ProviderGroq {
		return groqBaseURL
	}
	return ""
}
