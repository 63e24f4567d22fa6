package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/sectionscraper/export"
	"github.com/use-agent/sectionscraper/models"
)

func scrapeSectionsTool() mcp.Tool {
	return mcp.NewTool("scrape_sections",
		mcp.WithDescription("Scrape a web page into typed sections (hero, navigation, features, pricing, faq, footer, ...). Tries a fast static fetch first and falls back to a headless browser for JavaScript-heavy pages."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The http(s) URL of the page to scrape"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'markdown' (default) or 'json' (full structured result)"),
			mcp.Enum("markdown", "json"),
		),
		mcp.WithNumber("max_age",
			mcp.Description("Serve a cached result younger than this many milliseconds (default: 0, no cache)"),
		),
	)
}

func listScrapesTool() mcp.Tool {
	return mcp.NewTool("list_scrapes",
		mcp.WithDescription("List previously saved scrapes, newest first."),
		mcp.WithString("search",
			mcp.Description("Filter by URL or title (case-insensitive substring)"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number, starting at 1"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Results per page (default: 20, max: 100)"),
		),
	)
}

func getScrapeTool() mcp.Tool {
	return mcp.NewTool("get_scrape",
		mcp.WithDescription("Fetch one saved scrape by id."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The scrape id returned by scrape_sections or list_scrapes"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'markdown' (default) or 'json'"),
			mcp.Enum("markdown", "json"),
		),
	)
}

func handleScrapeSections(c *apiClient, ex *export.Exporter) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		format := request.GetString("format", "markdown")
		maxAge := request.GetInt("max_age", 0)

		resp, err := c.scrape(ctx, target, maxAge)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scrape failed: %v", err)), nil
		}
		if resp.Result == nil {
			return mcp.NewToolResultError("scrape returned no result"), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Scrape %s: %d sections, %d links, %d images, %d errors in %s",
			orNone(resp.ID), resp.Stats.Sections, resp.Stats.Links, resp.Stats.Images, resp.Stats.Errors,
			time.Duration(resp.ScrapeTime)*time.Millisecond)
		if resp.CacheStatus != "" {
			fmt.Fprintf(&sb, " (cache %s)", resp.CacheStatus)
		}
		sb.WriteString("\n\n")

		body, err := render(ex, resp.Result, format)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sb.WriteString(body)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleListScrapes(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := c.list(ctx,
			request.GetString("search", ""),
			request.GetInt("page", 0),
			request.GetInt("limit", 0),
		)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}

		p := resp.Pagination
		var sb strings.Builder
		fmt.Fprintf(&sb, "Page %d of %d (%d total)\n\n", p.Page, max(p.TotalPages, 1), p.Total)
		for _, s := range resp.Data {
			title := s.Title
			if title == "" {
				title = "(untitled)"
			}
			flag := ""
			if s.HasErrors {
				flag = " [errors]"
			}
			fmt.Fprintf(&sb, "- %s  %s  %s  %d sections%s  %s\n",
				s.ID, s.URL, title, s.SectionCount, flag, s.CreatedAt.Format(time.RFC3339))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleGetScrape(c *apiClient, ex *export.Exporter) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		rec, err := c.get(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get failed: %v", err)), nil
		}
		body, err := render(ex, rec.Result, request.GetString("format", "markdown"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(body), nil
	}
}

func render(ex *export.Exporter, res *models.ScrapeResult, format string) (string, error) {
	if format == "json" {
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode result: %w", err)
		}
		return string(b), nil
	}
	return ex.Markdown(res), nil
}

func orNone(id string) string {
	if id == "" {
		return "(not saved)"
	}
	return id
}
