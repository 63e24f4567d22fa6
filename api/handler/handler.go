// Package handler implements the HTTP endpoints as gin handler constructors.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sectionscraper/models"
	"github.com/use-agent/sectionscraper/store"
	"github.com/use-agent/sectionscraper/webhook"
)

// Scraper runs the static-then-rendered pipeline for one URL.
type Scraper interface {
	Scrape(ctx context.Context, url string) *models.ScrapeResult
}

// ScrapeStore persists scrape results.
type ScrapeStore interface {
	Save(ctx context.Context, result *models.ScrapeResult) (*models.StoredScrape, error)
	Get(ctx context.Context, id string) (*models.StoredScrape, error)
	List(ctx context.Context, f store.Filter) ([]models.ScrapeSummary, int, error)
	Delete(ctx context.Context, id string) error
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Notifier sends completion events.
type Notifier interface {
	Configured() bool
	Masked() webhook.MaskedConfig
	Deliver(ctx context.Context, event *webhook.Event) error
	DeliverAsync(event *webhook.Event) <-chan struct{}
}

// SessionReporter exposes browser session usage.
type SessionReporter interface {
	Stats() models.SessionStats
}

// respondError maps an error to the correct HTTP status code and writes a
// structured JSON error response.
func respondError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ErrorResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
	})
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, msg, nil))
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput, models.ErrCodeNotify:
		return http.StatusBadRequest // 400
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeBrowserUnavailable:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
