package models

import "time"

// SectionType is the heuristic category assigned to a Section.
type SectionType string

const (
	SectionHero         SectionType = "hero"
	SectionNav          SectionType = "nav"
	SectionFooter       SectionType = "footer"
	SectionSidebar      SectionType = "sidebar"
	SectionMain         SectionType = "main"
	SectionArticle      SectionType = "article"
	SectionGeneric      SectionType = "section"
	SectionPricing      SectionType = "pricing"
	SectionFAQ          SectionType = "faq"
	SectionFeatures     SectionType = "features"
	SectionTestimonials SectionType = "testimonials"
	SectionContact      SectionType = "contact"
	SectionAbout        SectionType = "about"
	SectionBlog         SectionType = "blog"
	SectionProducts     SectionType = "products"
	SectionTeam         SectionType = "team"
	SectionUnknown      SectionType = "unknown"
)

// ScrapeResult is the full outcome of scraping one URL. It is built by a
// single fetch strategy and is not modified after the orchestrator returns it.
type ScrapeResult struct {
	URL          string        `json:"url"`
	ScrapedAt    time.Time     `json:"scrapedAt"`
	Meta         Meta          `json:"meta"`
	Sections     []Section     `json:"sections"`
	Interactions Interactions  `json:"interactions"`
	Errors       []ErrorRecord `json:"errors"`
}

// Meta holds document-level metadata.
type Meta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`

	// Canonical is nil when the canonical URL could not be resolved.
	Canonical *string `json:"canonical"`

	Keywords string `json:"keywords"`
	Author   string `json:"author"`
}

// Section is one semantically coherent region of a page.
type Section struct {
	ID           string       `json:"id"`
	Type         SectionType  `json:"type"`
	Label        string       `json:"label"`
	SourceURL    string       `json:"sourceUrl"`
	Content      Content      `json:"content"`
	RawHTML      string       `json:"rawHtml"`
	Truncated    bool         `json:"truncated"`
	ElementCount ElementCount `json:"elementCount"`
}

// Content is the structured payload of a Section.
type Content struct {
	Headings []string `json:"headings"`
	Text     string   `json:"text"`
	Links    []Link   `json:"links"`
	Images   []Image  `json:"images"`
	Lists    []List   `json:"lists"`
	Tables   []Table  `json:"tables"`
}

// Link is an outgoing hyperlink found in a section.
type Link struct {
	Text  string `json:"text"`
	Href  string `json:"href"`
	Title string `json:"title"`
}

// Image is an embedded image found in a section. Width and Height carry the
// raw attribute values and are omitted when the attribute is absent.
type Image struct {
	Src    string `json:"src"`
	Alt    string `json:"alt"`
	Title  string `json:"title"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

// ListType distinguishes <ol> from <ul>.
type ListType string

const (
	ListOrdered   ListType = "ordered"
	ListUnordered ListType = "unordered"
)

// List is an ordered or unordered list.
type List struct {
	Type  ListType `json:"type"`
	Items []string `json:"items"`
}

// Table is a tabular block; Headers is the first row.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Caption string     `json:"caption"`
}

// ElementCount holds uncapped element counts for a section.
type ElementCount struct {
	Paragraphs int `json:"paragraphs"`
	Headings   int `json:"headings"`
	Links      int `json:"links"`
	Images     int `json:"images"`
}

// Interactions records what the rendering strategy did to the page.
type Interactions struct {
	Clicks  []string `json:"clicks"`
	Scrolls int      `json:"scrolls"`
	Pages   []string `json:"pages"`
}

// NewScrapeResult returns an empty result for url with non-nil slices so it
// serialises as arrays rather than null.
func NewScrapeResult(url string, scrapedAt time.Time) *ScrapeResult {
	return &ScrapeResult{
		URL:       url,
		ScrapedAt: scrapedAt,
		Sections:  []Section{},
		Interactions: Interactions{
			Clicks: []string{},
			Pages:  []string{},
		},
		Errors: []ErrorRecord{},
	}
}

// AddError appends an error record.
func (r *ScrapeResult) AddError(rec ErrorRecord) {
	r.Errors = append(r.Errors, rec)
}

// TotalTextLength is the sum of the rune lengths of every section's text.
func (r *ScrapeResult) TotalTextLength() int {
	total := 0
	for i := range r.Sections {
		total += len([]rune(r.Sections[i].Content.Text))
	}
	return total
}

// Stats summarises a result for API responses and notifications.
func (r *ScrapeResult) Stats() ResultStats {
	s := ResultStats{Sections: len(r.Sections), Errors: len(r.Errors)}
	for i := range r.Sections {
		s.Images += len(r.Sections[i].Content.Images)
		s.Links += len(r.Sections[i].Content.Links)
	}
	return s
}

// ResultStats counts the items in a ScrapeResult.
type ResultStats struct {
	Sections int `json:"sections"`
	Images   int `json:"images"`
	Links    int `json:"links"`
	Errors   int `json:"errors"`
}
