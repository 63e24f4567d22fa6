package extract

import (
	"net/url"
	"strings"
)

// AbsoluteURL resolves href against base. It reports false for empty or
// fragment-only hrefs and for anything that cannot be parsed. Hrefs that
// already carry an http or https scheme are returned unchanged.
func AbsoluteURL(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href, true
	}

	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil || !b.IsAbs() {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return b.ResolveReference(ref).String(), true
}
