// Package export renders scrape results as Markdown documents.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/use-agent/sectionscraper/models"
)

// Exporter converts results to Markdown. It is safe for concurrent use.
type Exporter struct {
	conv *converter.Converter
}

// New creates an Exporter.
func New() *Exporter {
	return &Exporter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Markdown renders result: a metadata header, one block per section, then
// any recorded errors.
func (e *Exporter) Markdown(result *models.ScrapeResult) string {
	var b strings.Builder

	title := strings.TrimSpace(result.Meta.Title)
	if title == "" {
		title = result.URL
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if d := strings.TrimSpace(result.Meta.Description); d != "" {
		fmt.Fprintf(&b, "> %s\n\n", d)
	}

	fmt.Fprintf(&b, "- Source: %s\n", result.URL)
	fmt.Fprintf(&b, "- Scraped: %s\n", result.ScrapedAt.UTC().Format(time.RFC3339))
	if result.Meta.Language != "" {
		fmt.Fprintf(&b, "- Language: %s\n", result.Meta.Language)
	}
	if result.Meta.Canonical != nil {
		fmt.Fprintf(&b, "- Canonical: %s\n", *result.Meta.Canonical)
	}
	b.WriteString("\n")

	for _, sec := range result.Sections {
		e.writeSection(&b, sec)
	}

	if len(result.Errors) > 0 {
		b.WriteString("## Errors\n\n")
		for _, rec := range result.Errors {
			fmt.Fprintf(&b, "- [%s] %s\n", rec.Phase, rec.Message)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (e *Exporter) writeSection(b *strings.Builder, sec models.Section) {
	fmt.Fprintf(b, "## %s\n\n", sec.Label)
	fmt.Fprintf(b, "_%s_\n\n", sec.Type)

	body := e.sectionBody(sec)
	if body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}
}

// sectionBody prefers the converted raw HTML and falls back to plain text
// when conversion fails or yields nothing.
func (e *Exporter) sectionBody(sec models.Section) string {
	if strings.TrimSpace(sec.RawHTML) != "" {
		md, err := e.conv.ConvertString(sec.RawHTML, converter.WithDomain(sec.SourceURL))
		if err == nil {
			if md = strings.TrimSpace(md); md != "" {
				return md
			}
		}
	}
	return strings.TrimSpace(sec.Content.Text)
}
