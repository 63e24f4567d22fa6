package extract

import (
	"slices"
	"strings"

	"github.com/use-agent/sectionscraper/models"
)

// Rule maps either an element tag or a set of label keywords to a section
// type. Exactly one of Tag or Keywords is set.
type Rule struct {
	Tag      string
	Keywords []string
	Type     models.SectionType
}

func (r Rule) match(label, tag string) bool {
	if r.Tag != "" {
		return r.Tag == tag
	}
	for _, kw := range r.Keywords {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

// rules is evaluated top to bottom and the first match wins. Tag rules come
// first so a <nav> labelled "Pricing" is still a nav.
var rules = []Rule{
	{Tag: "header", Type: models.SectionHero},
	{Tag: "nav", Type: models.SectionNav},
	{Tag: "footer", Type: models.SectionFooter},
	{Tag: "aside", Type: models.SectionSidebar},
	{Tag: "main", Type: models.SectionMain},
	{Tag: "article", Type: models.SectionArticle},
	{Tag: "section", Type: models.SectionGeneric},

	{Keywords: []string{"hero", "welcome", "get started"}, Type: models.SectionHero},
	{Keywords: []string{"footer"}, Type: models.SectionFooter},
	{Keywords: []string{"nav", "menu"}, Type: models.SectionNav},
	{Keywords: []string{"pricing", "price", "cost"}, Type: models.SectionPricing},
	{Keywords: []string{"faq", "frequently"}, Type: models.SectionFAQ},
	{Keywords: []string{"feature", "benefit"}, Type: models.SectionFeatures},
	{Keywords: []string{"testimonial", "review"}, Type: models.SectionTestimonials},
	{Keywords: []string{"contact", "subscribe"}, Type: models.SectionContact},
	{Keywords: []string{"about", "story"}, Type: models.SectionAbout},
	{Keywords: []string{"blog", "post"}, Type: models.SectionBlog},
	{Keywords: []string{"product", "service"}, Type: models.SectionProducts},
	{Keywords: []string{"team", "member"}, Type: models.SectionTeam},
}

// Rules returns a copy of the ordered classification table.
func Rules() []Rule {
	return slices.Clone(rules)
}

// Classify assigns a section type from the element tag and its label.
func Classify(label, tag string) models.SectionType {
	tag = strings.ToLower(strings.TrimSpace(tag))
	lower := strings.ToLower(label)
	for _, r := range rules {
		if r.match(lower, tag) {
			return r.Type
		}
	}
	if strings.TrimSpace(label) == "" {
		return models.SectionUnknown
	}
	return models.SectionGeneric
}
