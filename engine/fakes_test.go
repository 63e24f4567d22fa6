package engine_test

import (
	"context"
	"sync"

	"github.com/use-agent/sectionscraper/engine"
	"github.com/use-agent/sectionscraper/models"
)

// fakeFetcher is a configurable engine.Fetcher.
type fakeFetcher struct {
	name    string
	FetchFn func(ctx context.Context, url string) (*models.ScrapeResult, error)

	mu    sync.Mutex
	calls int
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*models.ScrapeResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.FetchFn(ctx, url)
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeBrowser hands out a single prepared session.
type fakeBrowser struct {
	session *fakeSession
	err     error
}

func (b *fakeBrowser) Acquire(ctx context.Context) (engine.Session, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.session, nil
}

// fakeSession scripts a browser tab. Successive HTML calls return successive
// entries of pages; the last entry repeats.
type fakeSession struct {
	pages       []string
	finalURL    string
	navigateErr error
	htmlErr     error
	scrollErr   error
	closeErr    error
	clickable   map[string]bool
	buttons     map[string]bool

	mu        sync.Mutex
	htmlCalls int
	clicked   []string
	pressed   []string
	scrolls   int
	closed    bool
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	if s.finalURL == "" {
		s.finalURL = url
	}
	return s.navigateErr
}

func (s *fakeSession) URL(ctx context.Context) (string, error) { return s.finalURL, nil }

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.htmlErr != nil {
		return "", s.htmlErr
	}
	i := min(s.htmlCalls, len(s.pages)-1)
	s.htmlCalls++
	return s.pages[i], nil
}

func (s *fakeSession) Click(ctx context.Context, selector string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.clickable[selector] {
		return false, nil
	}
	s.clicked = append(s.clicked, selector)
	return true, nil
}

func (s *fakeSession) ClickButton(ctx context.Context, text string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.buttons[text] {
		return false, nil
	}
	s.pressed = append(s.pressed, text)
	return true, nil
}

func (s *fakeSession) ScrollViewport(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scrollErr != nil {
		return s.scrollErr
	}
	s.scrolls++
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}
