package engine

import (
	"context"

	"github.com/use-agent/sectionscraper/models"
)

// Fetcher is a fetch strategy: it retrieves a URL and turns it into a
// ScrapeResult. Recoverable failures are reported as ErrorRecords inside the
// result; a non-nil error means the strategy itself could not run.
type Fetcher interface {
	// Name returns the strategy identifier ("static", "render").
	Name() string

	Fetch(ctx context.Context, url string) (*models.ScrapeResult, error)
}

// Browser hands out isolated rendering sessions.
type Browser interface {
	// Acquire returns a fresh session owned exclusively by the caller, who
	// must Close it. It blocks while the browser is at capacity.
	Acquire(ctx context.Context) (Session, error)
}

// Session is one isolated browser tab with resource blocking already
// installed.
type Session interface {
	// Navigate loads url and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// URL returns the current page URL after redirects.
	URL(ctx context.Context) (string, error)

	// HTML returns the serialised DOM.
	HTML(ctx context.Context) (string, error)

	// Click clicks the first element matching a CSS selector. It reports
	// false when nothing matches.
	Click(ctx context.Context, selector string) (bool, error)

	// ClickButton clicks the first <button> whose text contains text.
	ClickButton(ctx context.Context, text string) (bool, error)

	// ScrollViewport scrolls down by one viewport height.
	ScrollViewport(ctx context.Context) error

	Close() error
}
