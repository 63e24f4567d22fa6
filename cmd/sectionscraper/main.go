package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/sectionscraper/api"
	"github.com/use-agent/sectionscraper/api/handler"
	"github.com/use-agent/sectionscraper/cache"
	"github.com/use-agent/sectionscraper/config"
	"github.com/use-agent/sectionscraper/engine"
	"github.com/use-agent/sectionscraper/export"
	"github.com/use-agent/sectionscraper/scraper"
	"github.com/use-agent/sectionscraper/store"
	"github.com/use-agent/sectionscraper/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sectionscraper: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	logger := initLogger(cfg.Log)
	slog.Info("sectionscraper starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxSessions", cfg.Browser.MaxSessions,
	)

	// ── 3. Storage ──────────────────────────────────────────────────
	db := store.NewDB(cfg.Store.Path)
	if err := db.Open(); err != nil {
		slog.Error("failed to open database", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// ── 4. Fetch strategies ─────────────────────────────────────────
	static := engine.NewLoggingFetcher(
		engine.NewStaticFetcher(cfg.Limits, cfg.Browser.UserAgent), logger)

	var render engine.Fetcher
	var sessions handler.SessionReporter
	browser, err := scraper.NewBrowser(cfg.Browser)
	if err != nil {
		// Static extraction still works; escalations record the failure.
		slog.Warn("browser unavailable, rendering fallback disabled", "error", err)
	} else {
		defer browser.Close()
		render = engine.NewLoggingFetcher(engine.NewRenderFetcher(browser, cfg.Limits), logger)
		sessions = browser
	}

	orch := engine.NewOrchestrator(static, render, cfg.Limits)

	// ── 5. Cache and notifications ──────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)
	defer cc.Close()

	notifier := webhook.New(cfg.Notify)
	slog.Info("notifications", "configured", notifier.Configured())

	// ── 6. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(api.Deps{
		Scraper:   orch,
		Store:     store.NewScrapes(db),
		DB:        db,
		Notifier:  notifier,
		Sessions:  sessions,
		Cache:     cc,
		Exporter:  export.New(),
		StartTime: time.Now(),
	}, cfg)

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight scrapes can take a while; give them the navigation budget.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Limits.NavigationTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("sectionscraper stopped")
}

// initLogger configures slog based on the LogConfig and returns the logger.
func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
