package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/sectionscraper/extract"
	"github.com/use-agent/sectionscraper/models"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label string
		tag   string
		want  models.SectionType
	}{
		{"Pricing plans", "nav", models.SectionNav},
		{"Anything", "header", models.SectionHero},
		{"Links", "footer", models.SectionFooter},
		{"Related", "aside", models.SectionSidebar},
		{"Body", "main", models.SectionMain},
		{"Story", "article", models.SectionArticle},
		{"Our pricing", "section", models.SectionGeneric},
		{"Anything", "HEADER", models.SectionHero},

		{"Welcome aboard", "div", models.SectionHero},
		{"Get Started in minutes", "div", models.SectionHero},
		{"Footer links and menu", "div", models.SectionFooter},
		{"Main menu", "div", models.SectionNav},
		{"Simple Pricing", "div", models.SectionPricing},
		{"What it costs", "div", models.SectionPricing},
		{"FAQ", "div", models.SectionFAQ},
		{"Frequently asked", "div", models.SectionFAQ},
		{"Key Features", "div", models.SectionFeatures},
		{"Benefits", "div", models.SectionFeatures},
		{"Testimonials", "div", models.SectionTestimonials},
		{"Customer reviews", "div", models.SectionTestimonials},
		{"Contact us", "div", models.SectionContact},
		{"Subscribe to updates", "div", models.SectionContact},
		{"About", "div", models.SectionAbout},
		{"Our story", "div", models.SectionAbout},
		{"Latest blog", "div", models.SectionBlog},
		{"Recent posts", "div", models.SectionBlog},
		{"Products", "div", models.SectionProducts},
		{"Services", "div", models.SectionProducts},
		{"Meet the team", "div", models.SectionTeam},
		{"Members", "div", models.SectionTeam},

		{"Lorem ipsum", "div", models.SectionGeneric},
		{"", "div", models.SectionUnknown},
		{"   ", "body", models.SectionUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.tag+"/"+tt.label, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, extract.Classify(tt.label, tt.tag))
		})
	}
}

func TestRules_Order(t *testing.T) {
	t.Parallel()

	rules := extract.Rules()
	require.NotEmpty(t, rules)

	// Every tag rule precedes every keyword rule.
	seenKeyword := false
	for _, r := range rules {
		if r.Tag == "" {
			seenKeyword = true
			continue
		}
		assert.False(t, seenKeyword, "tag rule %q after keyword rules", r.Tag)
	}

	rules[0] = extract.Rule{Tag: "nav", Type: models.SectionPricing}
	assert.Equal(t, models.SectionHero, extract.Classify("x", "header"), "Rules must return a copy")
}
