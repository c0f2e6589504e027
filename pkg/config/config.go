package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Content  ContentConfig  `yaml:"content"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port             int `yaml:"port"`
	ReadTimeoutSecs  int `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int `yaml:"write_timeout_secs"`
}

// LLMConfig points at the hosted completion API. Provider is "openai" for any
// OpenAI-compatible endpoint (Groq by default) or "ollama".
// LLMConfig configures the chat model. A nil Temperature leaves sampling to
// the provider default; an explicit 0 is sent as 0.
type LLMConfig struct {
	Provider    string   `yaml:"provider"`
	Endpoint    string   `yaml:"endpoint"`
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	TimeoutMs   int      `yaml:"timeout_ms"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

type ScraperConfig struct {
	NavigationTimeoutMs int     `yaml:"navigation_timeout_ms"`
	SettleTimeoutMs     int     `yaml:"settle_timeout_ms"`
	PollIntervalMs      int     `yaml:"poll_interval_ms"`
	StablePolls         int     `yaml:"stable_polls"`
	RateLimit           float64 `yaml:"rate_limit"`
	UserAgent           string  `yaml:"user_agent"`
	ChromePath          string  `yaml:"chrome_path"`
	Readability         bool    `yaml:"readability"`
}

type ContentConfig struct {
	MaxChars     int `yaml:"max_chars"`
	PreviewChars int `yaml:"preview_chars"`
}

// DatabaseConfig enables the scrape history when URL is set.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	DefaultEndpoint = "https://api.groq.com/openai/v1"
	DefaultModel    = "llama-3.3-70b-versatile"
)

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/pagechat/config.yaml"),
			"/etc/pagechat/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read %s", path)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, eris.Wrapf(err, "config: parse %s", path)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() *Config {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 8000
	}
	if config.Server.ReadTimeoutSecs == 0 {
		config.Server.ReadTimeoutSecs = 30
	}
	if config.Server.WriteTimeoutSecs == 0 {
		config.Server.WriteTimeoutSecs = 120
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = ProviderOpenAI
	}
	if config.LLM.Endpoint == "" {
		if config.LLM.Provider == ProviderOllama {
			config.LLM.Endpoint = "http://localhost:11434"
		} else {
			config.LLM.Endpoint = DefaultEndpoint
		}
	}
	if config.LLM.Model == "" {
		config.LLM.Model = DefaultModel
	}
	if config.LLM.TimeoutMs == 0 {
		config.LLM.TimeoutMs = 60000
	}

	if config.Scraper.NavigationTimeoutMs == 0 {
		config.Scraper.NavigationTimeoutMs = 45000
	}
	if config.Scraper.SettleTimeoutMs == 0 {
		config.Scraper.SettleTimeoutMs = 3000
	}
	if config.Scraper.PollIntervalMs == 0 {
		config.Scraper.PollIntervalMs = 250
	}
	if config.Scraper.StablePolls == 0 {
		config.Scraper.StablePolls = 2
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 1.0
	}

	if config.Content.MaxChars == 0 {
		config.Content.MaxChars = 15000
	}
	if config.Content.PreviewChars == 0 {
		config.Content.PreviewChars = 1000
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "json"
	}
}

func mergeWithEnv(config *Config) {
	if port := os.Getenv("PAGECHAT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if provider := os.Getenv("PAGECHAT_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if endpoint := os.Getenv("PAGECHAT_LLM_ENDPOINT"); endpoint != "" {
		config.LLM.Endpoint = endpoint
	}
	if key := os.Getenv("PAGECHAT_LLM_API_KEY"); key != "" {
		config.LLM.APIKey = key
	} else if key := os.Getenv("GROQ_API_KEY"); key != "" && config.LLM.APIKey == "" {
		config.LLM.APIKey = key
	}
	if model := os.Getenv("PAGECHAT_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if level := os.Getenv("PAGECHAT_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
	if chrome := os.Getenv("CHROME_PATH"); chrome != "" {
		config.Scraper.ChromePath = chrome
	}
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c ScraperConfig) NavigationTimeout() time.Duration {
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

func (c ScraperConfig) SettleTimeout() time.Duration {
	return time.Duration(c.SettleTimeoutMs) * time.Millisecond
}

func (c ScraperConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}
