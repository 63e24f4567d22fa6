package extract

import (
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"

	"github.com/use-agent/sectionscraper/dom"
	"github.com/use-agent/sectionscraper/models"
)

// Per-section extraction caps.
const (
	MaxTextLen    = 5000
	MaxRawHTMLLen = 10000
	MaxLabelLen   = 100
	MaxLinks      = 20
	MaxImages     = 10
	MaxLists      = 5
	MaxTables     = 3

	// minFragmentLen is the trimmed length a text block must exceed to be
	// included in a section's text.
	minFragmentLen = 10

	labelWords = 7
)

var (
	selTextBlocks  = dom.MustCompile("p, h1, h2, h3, h4, h5, h6, li, td, th, span, div")
	selHeadings    = dom.MustCompile("h1, h2, h3")
	selAllHeadings = dom.MustCompile("h1, h2, h3, h4, h5, h6")
	selParagraphs  = dom.MustCompile("p")
	selAnchors     = dom.MustCompile("a")
	selLinks       = dom.MustCompile("a[href]")
	selImgs        = dom.MustCompile("img")
	selImages      = dom.MustCompile("img[src]")
	selLists       = dom.MustCompile("ul, ol")
	selListItems   = dom.MustCompile("li")
	selTables      = dom.MustCompile("table")
	selRows        = dom.MustCompile("tr")
	selCells       = dom.MustCompile("th, td")
	selCaption     = dom.MustCompile("caption")
)

// ExtractNode builds a Section from one candidate element. index is the
// candidate's position and feeds the section id. It reports false when the
// element could not be extracted; callers skip it.
func ExtractNode(node dom.Node, baseURL string, index int) (sec *models.Section, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("section extraction failed", "url", baseURL, "index", index, "panic", r)
			sec, ok = nil, false
		}
	}()

	headings := extractHeadings(node)
	text := extractText(node)
	tag := node.Tag()
	label := sectionLabel(node, headings, text)

	raw := clamp(node.InnerHTML(), MaxRawHTMLLen)

	return &models.Section{
		ID:        SectionID(label, baseURL, index),
		Type:      Classify(label, tag),
		Label:     label,
		SourceURL: baseURL,
		Content: models.Content{
			Headings: headings,
			Text:     text,
			Links:    extractLinks(node, baseURL),
			Images:   extractImages(node, baseURL),
			Lists:    extractLists(node),
			Tables:   extractTables(node),
		},
		RawHTML:   raw,
		Truncated: runeLen(raw) >= MaxRawHTMLLen,
		ElementCount: models.ElementCount{
			Paragraphs: node.Count(selParagraphs),
			Headings:   node.Count(selAllHeadings),
			Links:      node.Count(selAnchors),
			Images:     node.Count(selImgs),
		},
	}, true
}

// SectionID is "sec-" followed by the first 8 hex digits of
// SHA-1(label + baseURL + index). The same inputs always give the same id.
func SectionID(label, baseURL string, index int) string {
	sum := sha1.Sum([]byte(label + baseURL + strconv.Itoa(index)))
	return "sec-" + hex.EncodeToString(sum[:])[:8]
}

func extractText(node dom.Node) string {
	var parts []string
	for _, el := range node.All(selTextBlocks) {
		t := strings.TrimSpace(el.Text())
		if runeLen(t) > minFragmentLen {
			parts = append(parts, t)
		}
	}
	return clamp(strings.TrimSpace(strings.Join(parts, "\n\n")), MaxTextLen)
}

func extractHeadings(node dom.Node) []string {
	headings := []string{}
	seen := make(map[string]struct{})
	for _, h := range node.All(selHeadings) {
		t := strings.TrimSpace(h.Text())
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		headings = append(headings, t)
	}
	return headings
}

func extractLinks(node dom.Node, baseURL string) []models.Link {
	links := []models.Link{}
	for _, a := range node.All(selLinks) {
		if len(links) == MaxLinks {
			break
		}
		href, ok := AbsoluteURL(baseURL, a.AttrOr("href", ""))
		if !ok || href == baseURL {
			continue
		}
		text := strings.TrimSpace(a.Text())
		if text == "" {
			text = href
		}
		links = append(links, models.Link{
			Text:  text,
			Href:  href,
			Title: a.AttrOr("title", ""),
		})
	}
	return links
}

func extractImages(node dom.Node, baseURL string) []models.Image {
	images := []models.Image{}
	for _, img := range node.All(selImages) {
		if len(images) == MaxImages {
			break
		}
		src, ok := AbsoluteURL(baseURL, img.AttrOr("src", ""))
		if !ok || strings.HasSuffix(src, ".svg") {
			continue
		}
		images = append(images, models.Image{
			Src:    src,
			Alt:    img.AttrOr("alt", ""),
			Title:  img.AttrOr("title", ""),
			Width:  img.AttrOr("width", ""),
			Height: img.AttrOr("height", ""),
		})
	}
	return images
}

func extractLists(node dom.Node) []models.List {
	lists := []models.List{}
	for _, l := range node.All(selLists) {
		if len(lists) == MaxLists {
			break
		}
		var items []string
		for _, li := range l.All(selListItems) {
			if t := strings.TrimSpace(li.Text()); t != "" {
				items = append(items, t)
			}
		}
		if len(items) == 0 {
			continue
		}
		typ := models.ListUnordered
		if l.Tag() == "ol" {
			typ = models.ListOrdered
		}
		lists = append(lists, models.List{Type: typ, Items: items})
	}
	return lists
}

func extractTables(node dom.Node) []models.Table {
	tables := []models.Table{}
	for _, tbl := range node.All(selTables) {
		if len(tables) == MaxTables {
			break
		}
		var rows [][]string
		for _, tr := range tbl.All(selRows) {
			var cells []string
			for _, c := range tr.All(selCells) {
				cells = append(cells, strings.TrimSpace(c.Text()))
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		}
		if len(rows) == 0 {
			continue
		}
		caption := ""
		if c, ok := tbl.First(selCaption); ok {
			caption = strings.TrimSpace(c.Text())
		}
		tables = append(tables, models.Table{
			Headers: rows[0],
			Rows:    append([][]string{}, rows[1:]...),
			Caption: caption,
		})
	}
	return tables
}

// sectionLabel picks the first heading, then aria-label, then title, then the
// opening words of the text, then "Section". Long labels are cut with "...".
func sectionLabel(node dom.Node, headings []string, text string) string {
	var label string
	if len(headings) > 0 {
		label = headings[0]
	} else {
		label = firstNonEmpty(
			node.AttrOr("aria-label", ""),
			node.AttrOr("title", ""),
			firstWords(text, labelWords),
		)
	}
	if label == "" {
		label = "Section"
	}
	if runeLen(label) > MaxLabelLen {
		label = clamp(label, MaxLabelLen) + "..."
	}
	return label
}
