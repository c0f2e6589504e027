package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xhad/pagechat/internal/types"
	"github.com/xhad/pagechat/pkg/config"
	"github.com/xhad/pagechat/pkg/content"
	"github.com/xhad/pagechat/pkg/llm"
	"github.com/xhad/pagechat/pkg/processor"
	"github.com/xhad/pagechat/pkg/scraper"
	"github.com/xhad/pagechat/pkg/store"
)

// pipeline holds the components shared by serve and repl.
type pipeline struct {
	scraper *scraper.Scraper
	slot    *content.Slot
	engine  *llm.ChatEngine
	history types.HistoryStore
}

func (p *pipeline) Close() {
	if p.history != nil {
		p.history.Close()
	}
}

func chatConfig(c config.LLMConfig) llm.ChatConfig {
	return llm.ChatConfig{
		Provider:    c.Provider,
		Endpoint:    c.Endpoint,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Timeout:     c.Timeout(),
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
}

func browserConfig(c config.ScraperConfig) scraper.BrowserConfig {
	return scraper.BrowserConfig{
		NavigationTimeout: c.NavigationTimeout(),
		SettleTimeout:     c.SettleTimeout(),
		PollInterval:      c.PollInterval(),
		StablePolls:       c.StablePolls,
		UserAgent:         c.UserAgent,
		ExecPath:          c.ChromePath,
	}
}

func initPipeline(ctx context.Context, c *config.Config, onStage func(url, stage string)) (*pipeline, error) {
	extractor := processor.NewWithConfig(processor.ProcessorConfig{Readability: c.Scraper.Readability})

	s, err := scraper.NewWithConfig(scraper.ScraperConfig{
		RateLimit: c.Scraper.RateLimit,
		OnStage:   onStage,
	}, scraper.NewBrowser(browserConfig(c.Scraper)), extractor)
	if err != nil {
		return nil, eris.Wrap(err, "init scraper")
	}

	engine, err := llm.NewWithConfig(chatConfig(c.LLM))
	if err != nil {
		return nil, eris.Wrap(err, "init chat engine")
	}

	p := &pipeline{
		scraper: s,
		slot: content.NewWithConfig(content.SlotConfig{
			MaxChars:     c.Content.MaxChars,
			PreviewChars: c.Content.PreviewChars,
		}),
		engine: engine,
	}

	if c.Database.URL != "" {
		h, err := store.NewWithConfig(ctx, store.HistoryConfig{ConnString: c.Database.URL})
		if err != nil {
			return nil, eris.Wrap(err, "init history")
		}
		p.history = h
		zap.L().Info("scrape history enabled")
	}

	return p, nil
}
