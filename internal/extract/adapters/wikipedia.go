package adapters

import (
	"strings"

	"golang.org/x/net/html"
)

// WikipediaAdapter extracts article prose from Wikipedia pages
type WikipediaAdapter struct {
	BaseAdapter
}

// NewWikipediaAdapter creates a new Wikipedia adapter
func NewWikipediaAdapter() *WikipediaAdapter {
	return &WikipediaAdapter{}
}

// Name returns the adapter name
func (a *WikipediaAdapter) Name() string {
	return "wikipedia"
}

// CanHandle checks if this is a Wikipedia URL
func (a *WikipediaAdapter) CanHandle(rawURL string, contentType string) bool {
	return strings.Contains(rawURL, "wikipedia.org")
}

// ExtractText renders the parser output, dropping citation markers,
// reference lists, infobox tables and edit links
func (a *WikipediaAdapter) ExtractText(doc *html.Node) string {
	content := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" &&
			(a.HasClass(n, "mw-parser-output") || a.GetAttribute(n, "id") == "mw-content-text")
	})
	if content == nil {
		content = doc
	}

	return a.VisibleText(content, func(n *html.Node) bool {
		switch {
		case n.Data == "sup" && a.HasClass(n, "reference"):
			return true
		case n.Data == "ol" && a.HasClass(n, "references"):
			return true
		case n.Data == "table":
			return true
		case a.HasClass(n, "mw-editsection"), a.HasClass(n, "navbox"), a.HasClass(n, "reflist"):
			return true
		}
		return false
	})
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
