package extract

import (
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/use-agent/sectionscraper/dom"
	"github.com/use-agent/sectionscraper/models"
)

const (
	// MaxContainerCandidates caps the body-children fallback.
	MaxContainerCandidates = 15

	// minSignalText is the text length that on its own makes a candidate
	// worth keeping.
	minSignalText = 50

	// minDedupText is the text length a section must exceed to survive
	// deduplication.
	minDedupText = 20
)

var (
	landmarkSelectors = []dom.Selector{
		dom.MustCompile("header"),
		dom.MustCompile("nav"),
		dom.MustCompile("main"),
		dom.MustCompile("section"),
		dom.MustCompile("article"),
		dom.MustCompile("aside"),
		dom.MustCompile("footer"),
	}
	selContainers = dom.MustCompile("div, section, article")
)

// Segment parses html and splits it into deduplicated sections.
func Segment(html, baseURL string) []models.Section {
	doc, err := dom.Parse(html)
	if err != nil {
		slog.Warn("segment: parse failed", "url", baseURL, "error", err)
		return []models.Section{}
	}
	return SegmentDocument(doc, baseURL)
}

// SegmentDocument splits an already parsed document into sections.
//
// Candidates are the landmark elements, grouped by kind in the order header,
// nav, main, section, article, aside, footer. Without landmarks the direct
// div/section/article children of <body> are used instead. A candidate is
// kept when it carries a heading, a link, an image or enough text; if none
// survive the whole body becomes the single candidate. Finally sections with
// short or repeated text are dropped.
func SegmentDocument(doc *dom.Document, baseURL string) []models.Section {
	var sections []models.Section
	for i, node := range candidates(doc) {
		sec, ok := ExtractNode(node, baseURL, i)
		if !ok || !hasSignal(sec) {
			continue
		}
		sections = append(sections, *sec)
	}

	if len(sections) == 0 {
		if body, ok := doc.Body(); ok {
			if sec, ok := ExtractNode(body, baseURL, 0); ok {
				sections = append(sections, *sec)
			}
		}
	}

	return dedupe(sections)
}

func candidates(doc *dom.Document) []dom.Node {
	var nodes []dom.Node
	for _, sel := range landmarkSelectors {
		nodes = append(nodes, doc.All(sel)...)
	}
	if len(nodes) > 0 {
		return nodes
	}

	body, ok := doc.Body()
	if !ok {
		return nil
	}
	nodes = body.Children(selContainers)
	if len(nodes) > MaxContainerCandidates {
		nodes = nodes[:MaxContainerCandidates]
	}
	return nodes
}

func hasSignal(sec *models.Section) bool {
	c := sec.Content
	return runeLen(c.Text) > minSignalText ||
		len(c.Links) > 0 ||
		len(c.Images) > 0 ||
		len(c.Headings) > 0
}

// dedupe keeps the first section for each distinct text and drops sections
// whose text is too short to be meaningful.
func dedupe(sections []models.Section) []models.Section {
	out := make([]models.Section, 0, len(sections))
	seen := make(map[uint64]struct{}, len(sections))
	for _, s := range sections {
		if runeLen(s.Content.Text) <= minDedupText {
			continue
		}
		h := xxhash.Sum64String(s.Content.Text)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, s)
	}
	return out
}
