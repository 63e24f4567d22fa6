package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/use-agent/sectionscraper/config"
	"github.com/use-agent/sectionscraper/engine"
	"github.com/use-agent/sectionscraper/export"
	"github.com/use-agent/sectionscraper/scraper"
)

func main() {
	ctx := context.Background()

	m := NewMain()
	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Scraper replaces the configured pipeline. Set before Run in tests.
	Scraper Scraper

	closers []func()
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close releases the browser, if one was launched.
func (m *Main) Close() {
	for i := len(m.closers) - 1; i >= 0; i-- {
		m.closers[i]()
	}
	m.closers = nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("sectionscrape"),
		kong.Description("Scrape a web page into typed sections."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no URL specified. Run 'sectionscrape --help' for usage")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}

	slog.SetDefault(newLogger(stderr, cli.Verbose))

	deps := &Dependencies{
		Ctx:      ctx,
		Stdout:   stdout,
		Stderr:   stderr,
		Exporter: export.New(),
		Scraper:  m.Scraper,
	}
	if deps.Scraper == nil {
		sc, err := m.buildScraper(cli, stderr)
		if err != nil {
			return err
		}
		defer m.Close()
		deps.Scraper = sc
	}

	return cli.Run(deps)
}

// buildScraper wires the pipeline from configuration and flags.
func (m *Main) buildScraper(cli *CLI, stderr io.Writer) (Scraper, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	static := engine.NewLoggingFetcher(
		engine.NewStaticFetcher(cfg.Limits, cfg.Browser.UserAgent), logger)

	if cli.StaticOnly {
		return engine.NewOrchestrator(static, nil, cfg.Limits), nil
	}

	cfg.Browser.MaxSessions = 1
	browser, err := scraper.NewBrowser(cfg.Browser)
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed, or pass --static-only")
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	m.closers = append(m.closers, browser.Close)

	render := engine.NewRenderFetcher(browser, cfg.Limits).WithMaxScrolls(cli.Scrolls)
	return engine.NewOrchestrator(static, engine.NewLoggingFetcher(render, logger), cfg.Limits), nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
