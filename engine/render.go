package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/sectionscraper/config"
	"github.com/use-agent/sectionscraper/dom"
	"github.com/use-agent/sectionscraper/extract"
	"github.com/use-agent/sectionscraper/models"
)

// OverlaySelectors are clicked once each to dismiss modals and banners.
var OverlaySelectors = []string{
	`[aria-label="Close"]`,
	`.close`,
	`.modal-close`,
	`[data-dismiss="modal"]`,
	`.cookie-banner`,
	`#cookie-banner`,
	`.newsletter-popup`,
	`.overlay`,
}

// LoadMoreLabels are button texts that reveal paginated content.
var LoadMoreLabels = []string{
	"Load more",
	"Show more",
	"See more",
	"View more",
	"Load More",
	"Show More",
}

// RenderFetcher loads a page in a real browser, pokes at it the way a reader
// would (dismiss overlays, press load-more buttons, scroll) and extracts
// sections from the resulting DOM.
type RenderFetcher struct {
	browser    Browser
	limits     config.Limits
	maxScrolls int
}

// NewRenderFetcher creates a RenderFetcher that scrolls limits.MaxScrolls
// times.
func NewRenderFetcher(browser Browser, limits config.Limits) *RenderFetcher {
	return &RenderFetcher{browser: browser, limits: limits, maxScrolls: limits.MaxScrolls}
}

// WithMaxScrolls returns a copy that scrolls n times.
func (f *RenderFetcher) WithMaxScrolls(n int) *RenderFetcher {
	c := *f
	c.maxScrolls = max(n, 0)
	return &c
}

func (f *RenderFetcher) Name() string { return "render" }

// Fetch returns an error only when no browser session could be obtained.
// Navigation and extraction failures are recorded in the result.
func (f *RenderFetcher) Fetch(ctx context.Context, url string) (*models.ScrapeResult, error) {
	res := models.NewScrapeResult(url, time.Now().UTC())

	sess, err := f.browser.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: acquire session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			slog.Debug("render: session close failed", "url", url, "error", err)
		}
	}()

	navCtx, cancel := context.WithTimeout(ctx, f.limits.NavigationTimeout)
	err = sess.Navigate(navCtx, url)
	cancel()
	if err != nil {
		res.AddError(renderError("navigation failed", err))
		return res, nil
	}

	finalURL, err := sess.URL(ctx)
	if err != nil || finalURL == "" {
		finalURL = url
	}
	res.Interactions.Pages = append(res.Interactions.Pages, finalURL)

	html, err := sess.HTML(ctx)
	if err != nil {
		res.AddError(renderError("read page content", err))
		return res, nil
	}
	if doc, err := dom.Parse(html); err == nil {
		res.Meta = extract.ExtractMeta(doc, url)
	}

	f.dismissOverlays(ctx, sess, res)
	f.loadMore(ctx, sess, res)
	f.scroll(ctx, sess, res)

	html, err = sess.HTML(ctx)
	if err != nil {
		res.AddError(renderError("read page content", err))
		return res, nil
	}
	res.Sections = extract.Segment(html, url)
	return res, nil
}

// dismissOverlays records every selector as attempted, whether or not it
// matched anything.
func (f *RenderFetcher) dismissOverlays(ctx context.Context, sess Session, res *models.ScrapeResult) {
	for _, sel := range OverlaySelectors {
		f.act(ctx, func(ctx context.Context) (bool, error) { return sess.Click(ctx, sel) })
		_ = pause(ctx, f.limits.DismissPause)
		res.Interactions.Clicks = append(res.Interactions.Clicks, "dismiss:"+sel)
	}
}

func (f *RenderFetcher) loadMore(ctx context.Context, sess Session, res *models.ScrapeResult) {
	for _, label := range LoadMoreLabels {
		clicked := f.act(ctx, func(ctx context.Context) (bool, error) { return sess.ClickButton(ctx, label) })
		if !clicked {
			continue
		}
		_ = pause(ctx, f.limits.LoadMorePause)
		res.Interactions.Clicks = append(res.Interactions.Clicks, "load_more:"+label)
	}
}

// scroll counts every attempt, including ones the page rejected.
func (f *RenderFetcher) scroll(ctx context.Context, sess Session, res *models.ScrapeResult) {
	for i := 0; i < f.maxScrolls; i++ {
		f.act(ctx, func(ctx context.Context) (bool, error) { return true, sess.ScrollViewport(ctx) })
		_ = pause(ctx, f.limits.ScrollPause)
		res.Interactions.Scrolls++
	}
}

// act runs one interaction under the action timeout and swallows its error.
func (f *RenderFetcher) act(ctx context.Context, fn func(context.Context) (bool, error)) bool {
	if f.limits.ActionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.limits.ActionTimeout)
		defer cancel()
	}
	ok, err := fn(ctx)
	if err != nil {
		slog.Debug("render: interaction failed", "error", err)
		return false
	}
	return ok
}

func renderError(msg string, err error) models.ErrorRecord {
	code := models.ErrCodeNavigation
	if errors.Is(err, context.DeadlineExceeded) {
		code = models.ErrCodeTimeout
	}
	return models.ErrorRecord{
		Message: fmt.Sprintf("%s: %v", msg, err),
		Phase:   models.PhaseRender,
		Code:    code,
	}
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
