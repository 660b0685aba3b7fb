package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears key for the duration of the test and restores it afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

var allKeys = []string{
	"PORT", "DB_URL", "DATABASE_URL", "LOG_LEVEL", "LOG_FORMAT", "HTTP_TIMEOUT",
	"LLM_PROVIDER", "LLM_MODEL", "LLM_BASE_URL", "LLM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY",
	"ANTHROPIC_API_KEY", "LLM_TEMPERATURE", "LLM_MAX_TOKENS",
	"GITHUB_TOKEN", "GITHUB_API_URL", "TAVILY_API_KEY", "TAVILY_API_URL",
	"AGENT_MAX_TOOL_CALLS", "AGENT_ESCALATE_TOOL_ERRORS",
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, allKeys...)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, ProviderGroq, cfg.LLM.Provider)
	assert.InDelta(t, 0.6, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.Equal(t, "https://api.tavily.com", cfg.Tavily.APIURL)
	assert.Equal(t, 5, cfg.Agent.MaxToolCalls)
	assert.False(t, cfg.Agent.EscalateToolErrors)
	assert.Empty(t, cfg.DatabaseURL)

	assert.Equal(t, "llama3-8b-8192", cfg.LLM.ResolvedModel())
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.ResolvedBaseURL())
}

func TestLoad_Environment(t *testing.T) {
	unsetEnv(t, allKeys...)
	t.Setenv("PORT", "8080")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("TAVILY_API_KEY", "tv-key")
	t.Setenv("AGENT_MAX_TOOL_CALLS", "2")
	t.Setenv("AGENT_ESCALATE_TOOL_ERRORS", "true")
	t.Setenv("DATABASE_URL", "postgres://localhost/turns")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "anthropic-key", cfg.LLM.Key())
	assert.Equal(t, "groq-key", cfg.LLM.GroqAPIKey)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.LLM.ResolvedModel())
	assert.Empty(t, cfg.LLM.ResolvedBaseURL())
	assert.Equal(t, "gh-token", cfg.GitHub.Token)
	assert.Equal(t, "tv-key", cfg.Tavily.APIKey)
	assert.Equal(t, 2, cfg.Agent.MaxToolCalls)
	assert.True(t, cfg.Agent.EscalateToolErrors)
	assert.Equal(t, "postgres://localhost/turns", cfg.DatabaseURL)
}

func TestLoad_EnvFile(t *testing.T) {
	unsetEnv(t, allKeys...)
	t.Setenv("PORT", "9090")

	path := filepath.Join(t.TempDir(), ".env")
	content := "PORT=7000\nTAVILY_API_KEY=from-file\nLLM_MODEL=mixtral-8x7b-32768\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Process environment wins over the file.
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "from-file", cfg.Tavily.APIKey)
	assert.Equal(t, "mixtral-8x7b-32768", cfg.LLM.ResolvedModel())
}

func TestLoad_KeyFollowsProvider(t *testing.T) {
	tests := []struct {
		provider string
		override string
		want     string
	}{
		{"groq", "", "groq-key"},
		{"openai", "", "openai-key"},
		{"anthropic", "", "anthropic-key"},
		{"openai", "shared-key", "shared-key"},
	}

	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.want, func(t *testing.T) {
			unsetEnv(t, allKeys...)
			t.Setenv("LLM_PROVIDER", tt.provider)
			t.Setenv("GROQ_API_KEY", "groq-key")
			t.Setenv("OPENAI_API_KEY", "openai-key")
			t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
			if tt.override != "" {
				t.Setenv("LLM_API_KEY", tt.override)
			}

			cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.NoError(t, err)

			assert.Equal(t, tt.want, cfg.LLM.Key())
		})
	}
}

func TestLLMConfig_Key(t *testing.T) {
	keys := LLMConfig{GroqAPIKey: "g", OpenAIAPIKey: "o", AnthropicAPIKey: "a"}
	withProvider := func(provider string) LLMConfig {
		c := keys
		c.Provider = provider
		return c
	}

	tests := []struct {
		name string
		cfg  LLMConfig
		want string
	}{
		{"groq", withProvider(ProviderGroq), "g"},
		{"openai", withProvider(ProviderOpenAI), "o"},
		{"anthropic", withProvider(ProviderAnthropic), "a"},
		{"openai never falls back to groq", LLMConfig{Provider: ProviderOpenAI, GroqAPIKey: "g"}, ""},
		{"override", LLMConfig{Provider: ProviderAnthropic, APIKey: "x", AnthropicAPIKey: "a"}, "x"},
		{"unknown provider", LLMConfig{Provider: "mistral", GroqAPIKey: "g"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Key())
		})
	}
}
