package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factlens/internal/cache"
	"github.com/ppiankov/factlens/internal/model"
)

func TestTavily_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))

		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "who won", req.Query)
		assert.Equal(t, 2, req.MaxResults)

		_, _ = w.Write([]byte(`{"results":[
			{"title":" A ","url":"https://a.com/1","content":"alpha","score":0.9},
			{"title":"no url","url":""},
			{"title":"B","url":"https://b.com/2","content":"beta","score":0.5},
			{"title":"C","url":"https://c.com/3"}
		]}`))
	}))
	defer server.Close()

	results, err := NewTavily("tvly-key", server.URL, server.Client()).Search(context.Background(), "who won", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{URL: "https://a.com/1", Title: "A", Content: "alpha", Score: 0.9}, results[0])
	assert.Equal(t, "https://b.com/2", results[1].URL)
}

func TestTavily_Search_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewTavily("bad", server.URL, server.Client()).Search(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

const ddgPage = `<html><body>
<div class="result results_links">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.reuters.com%2Fstory&rut=abc">Reuters <b>story</b></a>
  <a class="result__snippet" href="#">The <b>feud</b> began in 2021.</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://example.org/page">Example</a>
</div>
<div class="result results_links">
  <a class="result__a" href="javascript:void(0)">Broken</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://third.net/">Third</a>
</div>
</body></html>`

func TestParseDuckDuckGo(t *testing.T) {
	results, err := parseDuckDuckGo(strings.NewReader(ddgPage), 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "https://www.reuters.com/story", results[0].URL)
	assert.Equal(t, "Reuters story", results[0].Title)
	assert.Equal(t, "The feud began in 2021.", results[0].Content)
	assert.Equal(t, "https://example.org/page", results[1].URL)
	assert.Equal(t, "https://third.net/", results[2].URL)

	limited, err := parseDuckDuckGo(strings.NewReader(ddgPage), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDuckDuckGo_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "celebrity feud", r.URL.Query().Get("q"))
		assert.Equal(t, "factlens-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer server.Close()

	results, err := NewDuckDuckGo(server.URL+"/html/", "factlens-test", server.Client()).Search(context.Background(), "celebrity feud", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

type countingSearcher struct {
	calls atomic.Int32
	err   error
}

func (s *countingSearcher) Name() string { return "counting" }

func (s *countingSearcher) Search(_ context.Context, query string, _ int) ([]Result, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []Result{{URL: "https://a.com/" + query, Title: query}}, nil
}

func TestCached(t *testing.T) {
	inner := &countingSearcher{}
	s := NewCached(inner, cache.NewMemoryCache(time.Minute, time.Minute), 0)

	for i := 0; i < 3; i++ {
		results, err := s.Search(context.Background(), "q", 3)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "https://a.com/q", results[0].URL)
	}
	assert.EqualValues(t, 1, inner.calls.Load())

	_, err := s.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls.Load(), "different result counts use different keys")
}

func TestCached_ErrorsNotCached(t *testing.T) {
	inner := &countingSearcher{err: assert.AnError}
	s := NewCached(inner, cache.NewMemoryCache(time.Minute, time.Minute), 0)

	_, err := s.Search(context.Background(), "q", 3)
	require.ErrorIs(t, err, assert.AnError)
	_, err = s.Search(context.Background(), "q", 3)
	require.Error(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestNew(t *testing.T) {
	httpCfg := model.DefaultConfig().HTTP

	_, err := New(model.SearchConfig{Provider: "tavily"}, httpCfg, nil, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TAVILY_API_KEY")

	s, err := New(model.SearchConfig{Provider: "tavily", TavilyKey: "k"}, httpCfg, nil, 0)
	require.NoError(t, err)
	assert.IsType(t, &Tavily{}, s)

	s, err = New(model.SearchConfig{Provider: "duckduckgo"}, httpCfg, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &Cached{}, s)
	assert.Equal(t, "duckduckgo", s.Name())

	_, err = New(model.SearchConfig{Provider: "bing"}, httpCfg, nil, 0)
	require.Error(t, err)
}
