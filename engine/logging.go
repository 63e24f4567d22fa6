package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/sectionscraper/models"
)

// LoggingFetcher wraps a Fetcher and logs every call.
type LoggingFetcher struct {
	inner  Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher wraps inner. A nil logger uses slog.Default().
func NewLoggingFetcher(inner Fetcher, logger *slog.Logger) *LoggingFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingFetcher{inner: inner, logger: logger}
}

func (f *LoggingFetcher) Name() string { return f.inner.Name() }

func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (*models.ScrapeResult, error) {
	start := time.Now()
	res, err := f.inner.Fetch(ctx, url)
	if err != nil {
		f.logger.Warn("fetch", "strategy", f.inner.Name(), "url", url, "duration", time.Since(start), "err", err)
		return res, err
	}
	if res == nil {
		f.logger.Info("fetch", "strategy", f.inner.Name(), "url", url, "duration", time.Since(start))
		return res, err
	}
	f.logger.Info("fetch",
		"strategy", f.inner.Name(),
		"url", url,
		"sections", len(res.Sections),
		"errors", len(res.Errors),
		"duration", time.Since(start),
	)
	return res, err
}
