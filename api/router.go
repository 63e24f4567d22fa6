// Package api wires the HTTP handlers and middleware into a gin engine.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sectionscraper/api/handler"
	"github.com/use-agent/sectionscraper/api/middleware"
	"github.com/use-agent/sectionscraper/cache"
	"github.com/use-agent/sectionscraper/config"
	"github.com/use-agent/sectionscraper/export"
	"github.com/use-agent/sectionscraper/models"
)

// Deps are the collaborators the handlers need. Cache and Sessions may be
// nil.
type Deps struct {
	Scraper   handler.Scraper
	Store     handler.ScrapeStore
	DB        handler.Pinger
	Notifier  handler.Notifier
	Sessions  handler.SessionReporter
	Cache     *cache.Cache
	Exporter  *export.Exporter
	StartTime time.Time
}

// NewRouter creates a configured gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → SecurityHeaders → CORS
//	API:     Auth (if enabled) → RateLimit
//
// /healthz and GET /api stay outside auth so probes always work.
func NewRouter(d Deps, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	if d.Exporter == nil {
		d.Exporter = export.New()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	r.GET("/healthz", handler.Health(d.DB, d.Notifier, d.Sessions, d.StartTime))
	r.GET("/api", handler.Info())

	protected := r.Group("/api")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.Scrape(d.Scraper, d.Store, d.Cache, d.Notifier))

	protected.GET("/scrapes", handler.ListScrapes(d.Store))
	protected.GET("/scrapes/:id", handler.GetScrape(d.Store))
	protected.GET("/scrapes/:id/markdown", handler.ScrapeMarkdown(d.Store, d.Exporter))
	protected.DELETE("/scrapes/:id", handler.DeleteScrape(d.Store))

	protected.GET("/notify/config", handler.NotifyConfig(d.Notifier))
	protected.POST("/notify/test", handler.NotifyTest(d.Notifier))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: &models.ErrorDetail{
				Code:    models.ErrCodeNotFound,
				Message: fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path),
			},
		})
	})

	return r
}
