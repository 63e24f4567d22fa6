package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/sectionscraper/config"
	"github.com/use-agent/sectionscraper/engine"
	"github.com/ysmood/gson"
)

var _ engine.Session = (*session)(nil)

// session is one incognito context with one tab.
type session struct {
	page      *rod.Page
	incognito *rod.Browser
	router    *rod.HijackRouter
	release   func()
	closeOnce sync.Once
	closeErr  error
}

func newSession(page *rod.Page, incognito *rod.Browser, cfg config.BrowserConfig, release func()) *session {
	if cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Debug("stealth injection failed", "error", err)
		}
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	_ = proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: "en-US,en;q=0.9",
	}.Call(page)

	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.ViewportWidth,
			Height:            cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		})
	}

	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		}),
	}.Call(page)

	return &session{
		page:      page,
		incognito: incognito,
		router:    setupHijack(page, cfg.BlockedResourceTypes),
		release:   release,
	}
}

// Navigate loads url and waits for the load event, then gives scripts a
// short window to settle the DOM.
func (s *session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("scraper: navigate: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("scraper: wait load: %w", err)
	}
	// Best effort: a page that never settles is still usable.
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("DOM did not stabilize", "url", url, "error", err)
	}
	return nil
}

func (s *session) URL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("scraper: page info: %w", err)
	}
	return info.URL, nil
}

func (s *session) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("scraper: read html: %w", err)
	}
	return html, nil
}

// Click clicks the first visible element matching selector. It reports
// false when nothing visible matches.
func (s *session) Click(ctx context.Context, selector string) (bool, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return false, fmt.Errorf("scraper: query %q: %w", selector, err)
	}
	return clickFirstVisible(els)
}

// ClickButton clicks the first visible <button> whose text contains text.
func (s *session) ClickButton(ctx context.Context, text string) (bool, error) {
	els, err := s.page.Context(ctx).ElementsX(buttonXPath(text))
	if err != nil {
		return false, fmt.Errorf("scraper: query button %q: %w", text, err)
	}
	return clickFirstVisible(els)
}

func (s *session) ScrollViewport(ctx context.Context) error {
	if _, err := s.page.Context(ctx).Eval(`() => window.scrollBy(0, window.innerHeight)`); err != nil {
		return fmt.Errorf("scraper: scroll: %w", err)
	}
	return nil
}

// Close tears down the tab and its context and frees the slot. Safe to call
// more than once.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.router != nil {
			if err := s.router.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop hijack: %w", err))
			}
		}
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
		if err := s.incognito.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
		s.release()
		if len(errs) > 0 {
			s.closeErr = fmt.Errorf("scraper: close session: %w", errors.Join(errs...))
		}
	})
	return s.closeErr
}

func clickFirstVisible(els rod.Elements) (bool, error) {
	for _, el := range els {
		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return false, fmt.Errorf("scraper: click: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// buttonXPath matches buttons whose string value contains text.
func buttonXPath(text string) string {
	return "//button[contains(., " + xpathLiteral(text) + ")]"
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
