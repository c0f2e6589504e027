package config

import (
	"fmt"
	"net/url"

	"go.uber.org/zap/zapcore"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	// Validate LLM config
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider %q", c.LLM.Provider),
		})
	}

	if u, err := url.Parse(c.LLM.Endpoint); err != nil || !u.IsAbs() || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.endpoint",
			Message: "endpoint must be an absolute URL",
		})
	}

	if c.LLM.Provider == ProviderOpenAI && c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: "api_key is required for the openai provider",
		})
	}

	if c.LLM.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.model",
			Message: "model is required",
		})
	}

	if c.LLM.TimeoutMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.timeout_ms",
			Message: "timeout_ms must be positive",
		})
	}

	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.MaxTokens < 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens cannot be negative",
		})
	}

	// Validate Scraper config
	if c.Scraper.NavigationTimeoutMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "scraper.navigation_timeout_ms",
			Message: "navigation_timeout_ms must be positive",
		})
	}

	if c.Scraper.SettleTimeoutMs < 0 || c.Scraper.SettleTimeoutMs >= c.Scraper.NavigationTimeoutMs {
		errors = append(errors, ValidationError{
			Field:   "scraper.settle_timeout_ms",
			Message: "settle_timeout_ms must be non-negative and less than navigation_timeout_ms",
		})
	}

	if c.Scraper.PollIntervalMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "scraper.poll_interval_ms",
			Message: "poll_interval_ms must be positive",
		})
	}

	if c.Scraper.StablePolls < 1 {
		errors = append(errors, ValidationError{
			Field:   "scraper.stable_polls",
			Message: "stable_polls must be positive",
		})
	}

	if c.Scraper.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate Content config
	if c.Content.MaxChars < 1 {
		errors = append(errors, ValidationError{
			Field:   "content.max_chars",
			Message: "max_chars must be positive",
		})
	}

	if c.Content.PreviewChars < 1 || c.Content.PreviewChars > c.Content.MaxChars {
		errors = append(errors, ValidationError{
			Field:   "content.preview_chars",
			Message: "preview_chars must be positive and not exceed max_chars",
		})
	}

	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid log level %q", c.Log.Level),
		})
	}

	return errors
}
