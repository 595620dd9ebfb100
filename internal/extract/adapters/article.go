package adapters

import (
	"golang.org/x/net/html"
)

// ArticleAdapter reads pages that mark their main content with <main>,
// <article> or role="main", which covers most news and court sites
type ArticleAdapter struct {
	BaseAdapter
	generic *GenericAdapter
}

// NewArticleAdapter creates a new article adapter
func NewArticleAdapter() *ArticleAdapter {
	return &ArticleAdapter{generic: NewGenericAdapter()}
}

// Name returns the adapter name
func (a *ArticleAdapter) Name() string {
	return "article"
}

// CanHandle accepts any HTML page; pages without a main region fall back to the body
func (a *ArticleAdapter) CanHandle(url string, contentType string) bool {
	return contentType == "" || isHTML(contentType)
}

// ExtractText renders the main content region, skipping asides and share widgets
func (a *ArticleAdapter) ExtractText(doc *html.Node) string {
	main := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode &&
			(n.Data == "main" || n.Data == "article" || a.GetAttribute(n, "role") == "main")
	})
	if main == nil {
		return a.generic.ExtractText(doc)
	}

	return a.VisibleText(main, func(n *html.Node) bool {
		return n.Data == "aside" || a.HasClass(n, "share") || a.HasClass(n, "related")
	})
}
