// Package scraper drives headless Chrome through go-rod and implements the
// engine.Browser capability used by the rendering fetcher.
package scraper

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/sectionscraper/config"
	"github.com/use-agent/sectionscraper/engine"
	"github.com/use-agent/sectionscraper/models"
	"golang.org/x/sync/semaphore"
)

var _ engine.Browser = (*Browser)(nil)

// Browser owns one Chrome process. Every Acquire opens a fresh incognito
// context with a single tab, so sessions never share cookies or storage.
// At most MaxSessions are open at once; waiters are served in FIFO order.
// It is safe for concurrent use.
type Browser struct {
	browser     *rod.Browser
	cfg         config.BrowserConfig
	slots       *semaphore.Weighted
	maxSessions int
	active      atomic.Int32
}

// NewBrowser launches Chrome and connects to it.
func NewBrowser(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserUnavailable,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserUnavailable,
			"failed to connect to browser",
			err,
		)
	}

	maxSessions := max(cfg.MaxSessions, 1)
	slog.Info("browser ready", "maxSessions", maxSessions)

	return &Browser{
		browser:     browser,
		cfg:         cfg,
		slots:       semaphore.NewWeighted(int64(maxSessions)),
		maxSessions: maxSessions,
	}, nil
}

// Acquire waits for a free slot and opens a new isolated session. The slot
// is returned when the session is closed.
func (b *Browser) Acquire(ctx context.Context) (engine.Session, error) {
	if err := b.slots.Acquire(ctx, 1); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserUnavailable,
			"timed out waiting for a browser session",
			err,
		)
	}
	b.active.Add(1)
	release := func() {
		b.active.Add(-1)
		b.slots.Release(1)
	}

	incognito, err := b.browser.Incognito()
	if err != nil {
		release()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserUnavailable,
			"failed to create browser context",
			err,
		)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		release()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserUnavailable,
			"failed to open page",
			err,
		)
	}

	return newSession(page, incognito, b.cfg, release), nil
}

// Stats returns a snapshot of session usage.
func (b *Browser) Stats() models.SessionStats {
	return models.SessionStats{
		MaxSessions:    b.maxSessions,
		ActiveSessions: int(b.active.Load()),
	}
}

// Close kills the browser process. Call it on shutdown to avoid zombie
// Chrome processes.
func (b *Browser) Close() {
	slog.Info("browser shutting down")
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
}
