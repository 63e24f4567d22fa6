package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/use-agent/sectionscraper/export"
	"github.com/use-agent/sectionscraper/models"
)

// Scraper runs the extraction pipeline for one URL.
type Scraper interface {
	Scrape(ctx context.Context, url string) *models.ScrapeResult
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Scraper  Scraper
	Exporter *export.Exporter
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	URL        string        `arg:"" help:"Page to scrape (http or https)"`
	StaticOnly bool          `name:"static-only" help:"Never launch a browser"`
	Scrolls    int           `default:"3" help:"Viewport scrolls during rendering"`
	Timeout    time.Duration `default:"90s" help:"Overall time limit"`
	Format     string        `short:"f" enum:"json,markdown" default:"json" help:"Output format (json, markdown)"`
	Verbose    bool          `short:"v" help:"Log pipeline progress to stderr"`
}

var httpURL = regexp.MustCompile(`(?i)^https?://`)

// Run scrapes the URL and writes the result.
func (c *CLI) Run(deps *Dependencies) error {
	target := strings.TrimSpace(c.URL)
	if !httpURL.MatchString(target) {
		return fmt.Errorf("only http(s) URLs are supported: %q", c.URL)
	}
	if c.Scrolls < 0 {
		return fmt.Errorf("--scrolls must not be negative")
	}

	ctx := deps.Ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	result := deps.Scraper.Scrape(ctx, target)

	for _, rec := range result.Errors {
		fmt.Fprintf(deps.Stderr, "warning: [%s] %s\n", rec.Phase, rec.Message)
	}

	switch c.Format {
	case "markdown":
		_, err := io.WriteString(deps.Stdout, deps.Exporter.Markdown(result))
		return err
	default:
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}
