package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sectionscraper/models"
)

// Version is reported by /healthz and /api.
const Version = "1.0.0"

// Health returns a handler for GET /healthz. Status is "degraded" when the
// database does not answer a ping. sessions may be nil.
func Health(db Pinger, n Notifier, sessions SessionReporter, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, database := "healthy", "connected"
		if err := db.Ping(ctx); err != nil {
			slog.Warn("health: database ping failed", "error", err)
			status, database = "degraded", "unavailable"
		}

		var stats models.SessionStats
		if sessions != nil {
			stats = sessions.Stats()
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			Database:     database,
			Notification: n.Configured(),
			Sessions:     stats,
			Version:      Version,
		})
	}
}

// Info returns a handler for GET /api listing the available endpoints.
func Info() gin.HandlerFunc {
	resp := models.InfoResponse{
		Service: "sectionscraper",
		Version: Version,
		Endpoints: map[string]string{
			"health":       "GET /healthz",
			"scrape":       "POST /api/scrape",
			"listScrapes":  "GET /api/scrapes",
			"getScrape":    "GET /api/scrapes/:id",
			"markdown":     "GET /api/scrapes/:id/markdown",
			"deleteScrape": "DELETE /api/scrapes/:id",
			"notifyConfig": "GET /api/notify/config",
			"notifyTest":   "POST /api/notify/test",
		},
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, resp)
	}
}
