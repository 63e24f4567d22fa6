package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/use-agent/sectionscraper/config"
	"github.com/use-agent/sectionscraper/models"
)

// Orchestrator runs the cheap static strategy first and escalates to the
// rendering strategy only when the static result is not good enough.
// Exactly one strategy's sections end up in the returned result.
type Orchestrator struct {
	static Fetcher
	render Fetcher
	limits config.Limits
}

// NewOrchestrator creates an Orchestrator. render may be nil, in which case
// insufficient static results are returned with a fallback_error record.
func NewOrchestrator(static, render Fetcher, limits config.Limits) *Orchestrator {
	return &Orchestrator{static: static, render: render, limits: limits}
}

// Scrape never fails: every problem is reported in the result's Errors.
//
//  1. static fetch
//  2. sufficient (sections, enough text, no errors) -> done
//  3. otherwise render
//  4. render produced sections -> use it, discard static
//  5. render produced nothing -> static + fallback record
//  6. render failed -> static + fallback_error record
func (o *Orchestrator) Scrape(ctx context.Context, url string) *models.ScrapeResult {
	start := time.Now()

	res, err := safeFetch(ctx, o.static, url)
	if err != nil {
		slog.Warn("static fetch failed", "url", url, "error", err)
		res = models.NewScrapeResult(url, start.UTC())
		res.Interactions.Pages = []string{url}
		res.AddError(models.ErrorRecord{Message: err.Error(), Phase: models.PhaseFetch, Code: models.ErrCodeFetch})
	}

	if o.Sufficient(res) {
		slog.Info("static result sufficient", "url", url, "sections", len(res.Sections), "duration", time.Since(start))
		return res
	}

	slog.Info("escalating to rendering", "url", url,
		"sections", len(res.Sections),
		"textLength", res.TotalTextLength(),
		"errors", len(res.Errors),
	)

	if o.render == nil {
		res.AddError(models.ErrorRecord{
			Message: "Rendering fallback failed: no rendering strategy configured",
			Phase:   models.PhaseFallbackError,
		})
		return res
	}

	rendered, err := safeFetch(ctx, o.render, url)
	if err != nil {
		slog.Warn("rendering fallback failed", "url", url, "error", err)
		rec := models.ErrorRecord{
			Message: "Rendering fallback failed: " + err.Error(),
			Phase:   models.PhaseFallbackError,
		}
		if pe, ok := err.(*panicError); ok {
			rec.Stack = pe.stack
		}
		res.AddError(rec)
		return res
	}

	if len(rendered.Sections) > 0 {
		slog.Info("rendered result used", "url", url, "sections", len(rendered.Sections), "duration", time.Since(start))
		return rendered
	}

	res.AddError(models.ErrorRecord{
		Message: "Rendering fallback returned no sections",
		Phase:   models.PhaseFallback,
	})
	return res
}

// Sufficient reports whether a static result can be returned as is.
func (o *Orchestrator) Sufficient(res *models.ScrapeResult) bool {
	return len(res.Sections) > 0 &&
		res.TotalTextLength() > o.limits.LowContentThreshold &&
		len(res.Errors) == 0
}

type panicError struct {
	value any
	stack string
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

// safeFetch turns a panicking strategy into an error and a nil result into
// an error.
func safeFetch(ctx context.Context, f Fetcher, url string) (res *models.ScrapeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &panicError{value: r, stack: string(debug.Stack())}
		}
	}()
	res, err = f.Fetch(ctx, url)
	if err == nil && res == nil {
		err = fmt.Errorf("%s: empty result", f.Name())
	}
	return res, err
}
