// Package adapters turns fetched HTML into readable page text, with
// site-specific handling for pages whose layout is known.
package adapters

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Adapter selects and renders the readable text of a page
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can handle the given URL/content
	CanHandle(url string, contentType string) bool

	// ExtractText returns the visible text of the page's main content
	ExtractText(doc *html.Node) string
}

// Registry manages domain adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a new adapter registry
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}

	// Register built-in adapters
	registry.Register(NewWikipediaAdapter())
	registry.Register(NewArticleAdapter())

	// Set generic adapter as fallback
	registry.generic = NewGenericAdapter()

	return registry
}

// Register registers a new adapter
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the best adapter for the given URL and content type
func (r *Registry) FindAdapter(url string, contentType string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(url, contentType) {
			return adapter
		}
	}
	return r.generic
}

// Document is the readable content of one page
type Document struct {
	Title   string
	Text    string
	Adapter string
}

// Parse reads an HTML page and renders it with the best adapter.
// Plain-text bodies are returned as they are.
func (r *Registry) Parse(url, contentType string, body io.Reader) (*Document, error) {
	if strings.HasPrefix(strings.ToLower(contentType), "text/plain") {
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		return &Document{Text: normalizeSpace(string(raw)), Adapter: "plain"}, nil
	}

	doc, err := html.Parse(body)
	if err != nil {
		return nil, err
	}

	adapter := r.FindAdapter(url, contentType)
	return &Document{
		Title:   pageTitle(doc),
		Text:    adapter.ExtractText(doc),
		Adapter: adapter.Name(),
	}, nil
}

// skipped elements never contribute visible text
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"template": true,
	"head":     true,
	"nav":      true,
	"footer":   true,
	"form":     true,
}

// block elements end a line of text
var block = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true, "pre": true,
}

// BaseAdapter provides common functionality for adapters
type BaseAdapter struct{}

// VisibleText renders the text below n, skipping scripts, styles and page
// chrome, with one line per block element. skip, if set, prunes extra nodes.
func (b *BaseAdapter) VisibleText(n *html.Node, skip func(*html.Node) bool) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped[n.Data] || (skip != nil && skip(n)) {
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && block[n.Data] {
			buf.WriteString("\n")
		}
	}

	walk(n)
	return normalizeSpace(buf.String())
}

// HasClass checks if a node has a specific CSS class
func (b *BaseAdapter) HasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, class := range strings.Fields(b.GetAttribute(n, "class")) {
		if class == className {
			return true
		}
	}
	return false
}

// GetAttribute gets an attribute value from a node
func (b *BaseAdapter) GetAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// FindFirst finds the first node matching a predicate
func (b *BaseAdapter) FindFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}

// pageTitle returns the text of the first <title> element
func pageTitle(doc *html.Node) string {
	var b BaseAdapter
	title := b.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "title"
	})
	if title == nil || title.FirstChild == nil {
		return ""
	}
	return normalizeSpace(title.FirstChild.Data)
}

// normalizeSpace collapses runs of blanks inside lines and drops empty lines
func normalizeSpace(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if l := strings.Join(strings.Fields(line), " "); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}
