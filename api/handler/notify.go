package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sectionscraper/models"
	"github.com/use-agent/sectionscraper/webhook"
)

// NotifyConfig returns a handler for GET /api/notify/config.
func NotifyConfig(n Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"config":    n.Masked(),
			"timestamp": time.Now().UTC(),
		})
	}
}

// NotifyTest returns a handler for POST /api/notify/test. Delivery is
// synchronous so the caller sees the outcome.
func NotifyTest(n Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !n.Configured() {
			respondError(c, models.NewScrapeError(models.ErrCodeNotify,
				"Notifications are not configured. Set SECTIONSCRAPER_WEBHOOK_URL.", nil))
			return
		}
		if err := n.Deliver(c.Request.Context(), webhook.NewTestEvent(time.Now())); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeNotify, err.Error(), err))
			return
		}
		c.JSON(http.StatusOK, models.MessageResponse{
			Success:   true,
			Message:   "Test notification sent successfully",
			Timestamp: time.Now().UTC(),
		})
	}
}
