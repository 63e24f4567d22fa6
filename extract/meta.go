package extract

import (
	"log/slog"

	"github.com/use-agent/sectionscraper/dom"
	"github.com/use-agent/sectionscraper/models"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 500
)

var (
	selOGTitle         = dom.MustCompile(`meta[property="og:title"]`)
	selTitle           = dom.MustCompile(`title`)
	selH1              = dom.MustCompile(`h1`)
	selDescription     = dom.MustCompile(`meta[name="description"]`)
	selOGDescription   = dom.MustCompile(`meta[property="og:description"]`)
	selTwitterDesc     = dom.MustCompile(`meta[name="twitter:description"]`)
	selContentLanguage = dom.MustCompile(`meta[http-equiv="content-language"]`)
	selCanonical       = dom.MustCompile(`link[rel="canonical"]`)
	selKeywords        = dom.MustCompile(`meta[name="keywords"]`)
	selAuthor          = dom.MustCompile(`meta[name="author"]`)
)

// ExtractMeta reads document-level metadata. For each field the first
// non-empty source wins. It never fails: a document that breaks extraction
// yields empty metadata with a nil canonical URL.
func ExtractMeta(doc *dom.Document, baseURL string) (meta models.Meta) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("meta extraction failed", "url", baseURL, "panic", r)
			meta = models.Meta{}
		}
	}()

	meta.Title = clamp(firstNonEmpty(
		attrOf(doc, selOGTitle, "content"),
		textOf(doc, selTitle),
		textOf(doc, selH1),
	), maxTitleLen)

	meta.Description = clamp(firstNonEmpty(
		attrOf(doc, selDescription, "content"),
		attrOf(doc, selOGDescription, "content"),
		attrOf(doc, selTwitterDesc, "content"),
	), maxDescriptionLen)

	meta.Language = firstNonEmpty(
		doc.Root().AttrOr("lang", ""),
		attrOf(doc, selContentLanguage, "content"),
	)

	canonical := firstNonEmpty(attrOf(doc, selCanonical, "href"), baseURL)
	if abs, ok := AbsoluteURL(baseURL, canonical); ok {
		meta.Canonical = &abs
	}

	meta.Keywords = firstNonEmpty(attrOf(doc, selKeywords, "content"))
	meta.Author = firstNonEmpty(attrOf(doc, selAuthor, "content"))
	return meta
}

func attrOf(doc *dom.Document, sel dom.Selector, name string) string {
	n, ok := doc.First(sel)
	if !ok {
		return ""
	}
	return n.AttrOr(name, "")
}

func textOf(doc *dom.Document, sel dom.Selector) string {
	n, ok := doc.First(sel)
	if !ok {
		return ""
	}
	return n.Text()
}
