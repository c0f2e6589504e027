package scraper

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xhad/pagechat/internal/types"
)

const (
	StageWaiting    = "waiting"
	StageRendering  = "rendering"
	StageExtracting = "extracting"
)

type ScraperConfig struct {
	RateLimit float64 // browser launches per second
	OnStage   func(url, stage string)
}

// Scraper renders a page and turns it into plain text. Every failure is
// reported as a *RetrievalError.
type Scraper struct {
	config    ScraperConfig
	renderer  types.Renderer
	extractor types.Extractor
	limiter   *rate.Limiter
}

func NewWithConfig(config ScraperConfig, renderer types.Renderer, extractor types.Extractor) (*Scraper, error) {
	if renderer == nil {
		return nil, eris.New("scraper: renderer is required")
	}
	if extractor == nil {
		return nil, eris.New("scraper: extractor is required")
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}

	return &Scraper{
		config:    config,
		renderer:  renderer,
		extractor: extractor,
		limiter:   rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

func (s *Scraper) stage(url, stage string) {
	if s.config.OnStage != nil {
		s.config.OnStage(url, stage)
	}
}

// Fetch returns the normalized text of the rendered page at url.
func (s *Scraper) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()

	s.stage(url, StageWaiting)
	if err := s.limiter.Wait(ctx); err != nil {
		return "", newRetrievalError(url, eris.Wrap(err, "scraper: rate limit"))
	}

	s.stage(url, StageRendering)
	html, err := s.renderer.Render(ctx, url)
	if err != nil {
		return "", newRetrievalError(url, err)
	}

	s.stage(url, StageExtracting)
	text, err := s.extractor.Extract(url, html)
	if err != nil {
		return "", newRetrievalError(url, err)
	}

	zap.L().Info("scraper: fetched page",
		zap.String("url", url),
		zap.Int("html_bytes", len(html)),
		zap.Int("text_bytes", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return text, nil
}
