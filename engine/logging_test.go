package engine_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/sectionscraper/engine"
	"github.com/use-agent/sectionscraper/models"
)

func TestLoggingFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("logs sections and duration", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := static(resultWith("https://example.com/docs", "some section text here"))

		f := engine.NewLoggingFetcher(inner, logger)
		res, err := f.Fetch(context.Background(), "https://example.com/docs")

		require.NoError(t, err)
		assert.Len(t, res.Sections, 1)
		assert.Equal(t, "static", f.Name())
		out := buf.String()
		assert.Contains(t, out, "strategy=static")
		assert.Contains(t, out, "url=https://example.com/docs")
		assert.Contains(t, out, "sections=1")
		assert.Contains(t, out, "duration=")
	})

	t.Run("logs error on failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &fakeFetcher{name: "render", FetchFn: func(ctx context.Context, url string) (*models.ScrapeResult, error) {
			return nil, errors.New("no browser")
		}}

		_, err := engine.NewLoggingFetcher(inner, logger).Fetch(context.Background(), "https://example.com/")

		require.Error(t, err)
		assert.Contains(t, buf.String(), `err="no browser"`)
		assert.Contains(t, buf.String(), "level=WARN")
	})
}
