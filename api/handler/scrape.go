package handler

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sectionscraper/cache"
	"github.com/use-agent/sectionscraper/models"
	"github.com/use-agent/sectionscraper/webhook"
)

var httpURL = regexp.MustCompile(`(?i)^https?://`)

// Scrape returns a handler for POST /api/scrape.
//
//  1. Validate the URL (non-empty, http or https).
//  2. Serve from cache when maxAge allows it.
//  3. Run the pipeline. It keeps going if the client disconnects.
//  4. Save the result; a storage failure is logged, not returned.
//  5. Fire the completion webhook when configured and saved.
//
// cc may be nil.
func Scrape(sc Scraper, st ScrapeStore, cc *cache.Cache, n Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Provide a valid 'url' in the request body")
			return
		}
		target := strings.TrimSpace(req.URL)
		if target == "" {
			badRequest(c, "Provide a valid 'url' in the request body")
			return
		}
		if !httpURL.MatchString(target) {
			badRequest(c, "Only http(s) URLs are supported")
			return
		}

		if cc != nil && req.MaxAge > 0 {
			if e, hit := cc.Get(target, req.MaxAge); hit {
				c.JSON(http.StatusOK, models.ScrapeResponse{
					Success:      true,
					Message:      "Scrape served from cache",
					ID:           e.ID,
					ScrapeTime:   time.Since(start).Milliseconds(),
					Notification: models.NotificationStatus{Configured: n.Configured()},
					Stats:        e.Result.Stats(),
					Result:       e.Result,
					CacheStatus:  "hit",
					Timestamp:    time.Now().UTC(),
				})
				return
			}
		}

		slog.Info("scrape started", "url", target)
		ctx := context.WithoutCancel(c.Request.Context())
		result := sc.Scrape(ctx, target)
		scrapeTime := time.Since(start).Milliseconds()
		slog.Info("scrape completed",
			"url", target,
			"sections", len(result.Sections),
			"errors", len(result.Errors),
			"scrapeTime", scrapeTime,
		)

		var id string
		if rec, err := st.Save(ctx, result); err != nil {
			slog.Error("scrape save failed", "url", target, "error", err)
		} else {
			id = rec.ID
		}

		sent := false
		if n.Configured() && id != "" {
			n.DeliverAsync(webhook.NewCompletedEvent(id, result, scrapeTime, time.Now()))
			sent = true
		}

		resp := models.ScrapeResponse{
			Success:      true,
			Message:      "Scrape completed successfully",
			ID:           id,
			ScrapeTime:   scrapeTime,
			Notification: models.NotificationStatus{Sent: sent, Configured: n.Configured()},
			Stats:        result.Stats(),
			Result:       result,
			Timestamp:    time.Now().UTC(),
		}

		if cc != nil {
			// Unsaved results would hand out an empty id on later hits.
			if id != "" {
				cc.Set(target, id, result)
			}
			if req.MaxAge > 0 {
				resp.CacheStatus = "miss"
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}
