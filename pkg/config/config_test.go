package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PAGECHAT_PORT", "PAGECHAT_LLM_PROVIDER", "PAGECHAT_LLM_ENDPOINT",
		"PAGECHAT_LLM_API_KEY", "GROQ_API_KEY", "PAGECHAT_LLM_MODEL",
		"DATABASE_URL", "PAGECHAT_LOG_LEVEL", "CHROME_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  port: 9090

llm:
  provider: openai
  endpoint: "https://llm.example.com/v1"
  api_key: "secret"
  model: "test-model"
  timeout_ms: 5000
  temperature: 0.5

scraper:
  navigation_timeout_ms: 20000
  settle_timeout_ms: 1500
  rate_limit: 0.5
  readability: true

content:
  max_chars: 2000
  preview_chars: 100

database:
  url: "postgres://localhost:5432/pagechat"

log:
  level: debug
  format: console
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "https://llm.example.com/v1", config.LLM.Endpoint)
	assert.Equal(t, "secret", config.LLM.APIKey)
	assert.Equal(t, "test-model", config.LLM.Model)
	assert.Equal(t, 5000, config.LLM.TimeoutMs)
	require.NotNil(t, config.LLM.Temperature)
	assert.Equal(t, 0.5, *config.LLM.Temperature)
	assert.Equal(t, 20000, config.Scraper.NavigationTimeoutMs)
	assert.Equal(t, 1500, config.Scraper.SettleTimeoutMs)
	assert.Equal(t, 250, config.Scraper.PollIntervalMs)
	assert.True(t, config.Scraper.Readability)
	assert.Equal(t, 2000, config.Content.MaxChars)
	assert.Equal(t, 100, config.Content.PreviewChars)
	assert.Equal(t, "postgres://localhost:5432/pagechat", config.Database.URL)
	assert.Equal(t, "console", config.Log.Format)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8000, config.Server.Port)
	assert.Equal(t, ProviderOpenAI, config.LLM.Provider)
	assert.Equal(t, DefaultEndpoint, config.LLM.Endpoint)
	assert.Equal(t, DefaultModel, config.LLM.Model)
	assert.Equal(t, 60000, config.LLM.TimeoutMs)
	assert.Equal(t, 15000, config.Content.MaxChars)
	assert.Equal(t, 1000, config.Content.PreviewChars)
	assert.Equal(t, "info", config.Log.Level)
	assert.Empty(t, config.Database.URL)
	assert.Nil(t, config.LLM.Temperature)
}

func TestLoadConfigZeroTemperature(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("llm:\n  api_key: k\n  temperature: 0\n"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, config.LLM.Temperature)
	assert.Equal(t, 0.0, *config.LLM.Temperature)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read")
}

func TestOllamaDefaultEndpoint(t *testing.T) {
	config := &Config{LLM: LLMConfig{Provider: ProviderOllama}}
	applyDefaults(config)
	assert.Equal(t, "http://localhost:11434", config.LLM.Endpoint)
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		c := &Config{LLM: LLMConfig{APIKey: "key"}}
		applyDefaults(c)
		return c
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		fields []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:   "ollama without key",
			mutate: func(c *Config) { c.LLM.Provider = ProviderOllama; c.LLM.APIKey = "" },
		},
		{
			name:   "missing api key",
			mutate: func(c *Config) { c.LLM.APIKey = "" },
			fields: []string{"llm.api_key"},
		},
		{
			name: "bad llm settings",
			mutate: func(c *Config) {
				c.LLM.Provider = "bogus"
				c.LLM.Endpoint = "invalid-url"
				temperature := 3.0
				c.LLM.Temperature = &temperature
			},
			fields: []string{"llm.provider", "llm.endpoint", "llm.temperature"},
		},
		{
			name: "settle longer than navigation",
			mutate: func(c *Config) {
				c.Scraper.SettleTimeoutMs = c.Scraper.NavigationTimeoutMs
			},
			fields: []string{"scraper.settle_timeout_ms"},
		},
		{
			name: "preview larger than stored text",
			mutate: func(c *Config) {
				c.Content.PreviewChars = c.Content.MaxChars + 1
			},
			fields: []string{"content.preview_chars"},
		},
		{
			name: "bad port and log level",
			mutate: func(c *Config) {
				c.Server.Port = 70000
				c.Log.Level = "loud"
			},
			fields: []string{"server.port", "log.level"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			errors := c.Validate()
			require.Len(t, errors, len(tt.fields))
			for i, field := range tt.fields {
				assert.Equal(t, field, errors[i].Field)
				assert.Contains(t, errors[i].Error(), field+": ")
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGECHAT_PORT", "9999")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("PAGECHAT_LLM_MODEL", "env-model")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "groq-key", config.LLM.APIKey)
	assert.Equal(t, "env-model", config.LLM.Model)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)

	t.Setenv("PAGECHAT_LLM_API_KEY", "explicit-key")
	mergeWithEnv(config)
	assert.Equal(t, "explicit-key", config.LLM.APIKey)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	err := InitLogger(LogConfig{Level: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
