// Package search finds candidate source pages for a research question.
package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/factlens/internal/cache"
	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/util"
)

// Result is one search hit
type Result struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Content string  `json:"content,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// Searcher runs a web search
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// New builds the configured searcher, wrapped in c when c is non-nil
func New(cfg model.SearchConfig, httpCfg model.HTTPConfig, c cache.Cache, ttl time.Duration) (Searcher, error) {
	client := &http.Client{
		Timeout: httpCfg.Timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
		},
	}

	var s Searcher
	switch strings.ToLower(cfg.Provider) {
	case "", "tavily":
		if cfg.TavilyKey == "" {
			return nil, fmt.Errorf("TAVILY_API_KEY environment variable not set")
		}
		s = NewTavily(cfg.TavilyKey, cfg.BaseURL, client)
	case "duckduckgo", "ddg":
		s = NewDuckDuckGo(cfg.BaseURL, httpCfg.UserAgent, client)
	default:
		return nil, fmt.Errorf("unknown search provider: %s (supported: tavily, duckduckgo)", cfg.Provider)
	}

	if c != nil {
		s = NewCached(s, c, ttl)
	}
	return s, nil
}
