// Package dom is the read-only parsed-document layer used by extraction.
// It wraps goquery selections behind precompiled cascadia selectors so the
// extractors never deal with raw *html.Node trees.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Selector is a precompiled CSS selector (or selector group).
type Selector = cascadia.Selector

// MustCompile compiles a CSS selector group and panics on a syntax error.
// Intended for package-level selector variables.
func MustCompile(css string) Selector {
	sel, err := cascadia.Compile(css)
	if err != nil {
		panic(fmt.Sprintf("dom: compile %q: %v", css, err))
	}
	return sel
}

// Document is a parsed HTML document.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from HTML. The HTML5 parser recovers from almost
// any malformed input, so an error means the reader itself failed.
func Parse(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Root returns the <html> element (or the document root when absent).
func (d *Document) Root() Node {
	if html := d.doc.Find("html").First(); html.Length() > 0 {
		return Node{sel: html}
	}
	return Node{sel: d.doc.Selection}
}

// Body returns the <body> element.
func (d *Document) Body() (Node, bool) {
	body := d.doc.Find("body").First()
	return Node{sel: body}, body.Length() > 0
}

// All returns every element matching sel in document order.
func (d *Document) All(sel Selector) []Node {
	return nodes(d.doc.FindMatcher(sel))
}

// First returns the first element matching sel.
func (d *Document) First(sel Selector) (Node, bool) {
	s := d.doc.FindMatcher(sel).First()
	return Node{sel: s}, s.Length() > 0
}

// Node is a single element.
type Node struct {
	sel *goquery.Selection
}

// Tag returns the lower-cased element name.
func (n Node) Tag() string {
	return goquery.NodeName(n.sel)
}

// Attr returns an attribute value and whether it was present.
func (n Node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

// AttrOr returns the attribute value or fallback when absent.
func (n Node) AttrOr(name, fallback string) string {
	return n.sel.AttrOr(name, fallback)
}

// Text returns the concatenated text content of the element.
func (n Node) Text() string {
	return n.sel.Text()
}

// InnerHTML returns the serialised children of the element.
func (n Node) InnerHTML() string {
	h, err := n.sel.Html()
	if err != nil {
		return ""
	}
	return h
}

// All returns the descendants matching sel in document order.
func (n Node) All(sel Selector) []Node {
	return nodes(n.sel.FindMatcher(sel))
}

// First returns the first descendant matching sel.
func (n Node) First(sel Selector) (Node, bool) {
	s := n.sel.FindMatcher(sel).First()
	return Node{sel: s}, s.Length() > 0
}

// Count returns the number of descendants matching sel.
func (n Node) Count(sel Selector) int {
	return n.sel.FindMatcher(sel).Length()
}

// Children returns the direct children matching sel.
func (n Node) Children(sel Selector) []Node {
	return nodes(n.sel.ChildrenMatcher(sel))
}

func nodes(s *goquery.Selection) []Node {
	out := make([]Node, 0, s.Length())
	s.Each(func(_ int, item *goquery.Selection) {
		out = append(out, Node{sel: item})
	})
	return out
}
