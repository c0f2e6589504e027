package scraper

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// domSizeScript reports the serialized DOM length once the document has
// finished loading, and -1 before that.
const domSizeScript = `document.readyState === "complete" ? document.documentElement.outerHTML.length : -1`

type BrowserConfig struct {
	NavigationTimeout time.Duration
	SettleTimeout     time.Duration
	PollInterval      time.Duration
	StablePolls       int
	UserAgent         string
	ExecPath          string
}

// Browser renders pages in a fresh headless Chrome process per call.
type Browser struct {
	config BrowserConfig
}

func NewBrowser(config BrowserConfig) *Browser {
	if config.NavigationTimeout == 0 {
		config.NavigationTimeout = 45 * time.Second
	}
	if config.SettleTimeout == 0 {
		config.SettleTimeout = 3 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = 250 * time.Millisecond
	}
	if config.StablePolls == 0 {
		config.StablePolls = 2
	}

	return &Browser{config: config}
}

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+6)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.config.UserAgent))
	}
	if b.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.config.ExecPath))
	}
	return opts
}

// Render loads url and returns the rendered markup of the document root.
// The browser process is torn down before Render returns.
func (b *Browser) Render(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.NavigationTimeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(zap.S().Debugf))
	defer taskCancel()

	start := time.Now()
	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		b.waitForSettle(url),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", eris.Wrapf(err, "browser: render %s", url)
	}

	zap.L().Debug("browser: rendered page",
		zap.String("url", url),
		zap.Int("html_bytes", len(html)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return html, nil
}

// waitForSettle polls the DOM until it stops changing or the settle timeout
// elapses. Hitting the timeout is not an error; the page is captured as is.
func (b *Browser) waitForSettle(url string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		deadline := time.Now().Add(b.config.SettleTimeout)
		tracker := newSettleTracker(b.config.StablePolls)

		ticker := time.NewTicker(b.config.PollInterval)
		defer ticker.Stop()

		for {
			var size int64
			if err := chromedp.Evaluate(domSizeScript, &size).Do(ctx); err != nil {
				return eris.Wrap(err, "browser: poll dom size")
			}
			if tracker.observe(size) {
				return nil
			}
			if !time.Now().Before(deadline) {
				zap.L().Debug("browser: settle timeout reached",
					zap.String("url", url),
					zap.Duration("settle_timeout", b.config.SettleTimeout),
				)
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})
}

// settleTracker decides when consecutive DOM size samples are stable.
type settleTracker struct {
	need   int
	last   int64
	stable int
	seen   bool
}

func newSettleTracker(need int) *settleTracker {
	if need < 1 {
		need = 1
	}
	return &settleTracker{need: need}
}

// observe records a sample and reports whether the last need+1 loaded
// samples were identical. Negative samples mean the document is still
// loading and reset the count.
func (t *settleTracker) observe(size int64) bool {
	if size < 0 {
		t.seen = false
		t.stable = 0
		return false
	}
	if t.seen && size == t.last {
		t.stable++
	} else {
		t.seen = true
		t.last = size
		t.stable = 0
	}
	return t.stable >= t.need
}
