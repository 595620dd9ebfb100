package search

import (
	"context"
	"strconv"
	"time"

	"github.com/ppiankov/factlens/internal/cache"
)

// Cached memoizes successful searches for the session
type Cached struct {
	inner Searcher
	cache cache.Cache
	ttl   time.Duration
}

// NewCached wraps inner with c
func NewCached(inner Searcher, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

// Name returns the wrapped provider's name
func (s *Cached) Name() string {
	return s.inner.Name()
}

// Search serves repeated queries from the cache; errors are never cached
func (s *Cached) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	key := cache.Key(cache.NamespaceSearch, s.inner.Name(), query, strconv.Itoa(maxResults))
	if results, ok := cache.GetJSON[[]Result](s.cache, key); ok {
		return results, nil
	}

	results, err := s.inner.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	cache.SetJSON(s.cache, key, results, s.ttl)
	return results, nil
}
