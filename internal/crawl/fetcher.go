package crawl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/factlens/internal/cache"
	"github.com/ppiankov/factlens/internal/extract/adapters"
	"github.com/ppiankov/factlens/internal/logging"
	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/util"
	"github.com/ppiankov/factlens/internal/worker"
)

// fetchSleepFunc is overridden in tests
var fetchSleepFunc = time.Sleep

// Page is the readable content of one fetched URL
type Page struct {
	URL         string `json:"url"`
	FinalURL    string `json:"final_url"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	ContentType string `json:"content_type"`
}

// PageFetcher retrieves the readable text of a URL
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// Fetcher fetches pages over HTTP, honoring robots.txt and per-domain rate
// limits, and caches extracted text for the session
type Fetcher struct {
	httpClient  *http.Client
	userAgent   string
	maxBytes    int64
	maxAttempts int
	robots      *util.RobotsChecker
	limiter     *worker.Limiter
	adapters    *adapters.Registry
	cache       cache.Cache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithCache caches extracted pages in c
func WithCache(c cache.Cache, ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithLogger sets the fetcher's logger
func WithLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logging.OrNop(l)
	}
}

// NewFetcher creates a fetcher from HTTP configuration
func NewFetcher(cfg model.HTTPConfig, opts ...FetcherOption) *Fetcher {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}

	maxAttempts := cfg.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:   cfg.UserAgent,
		maxBytes:    maxBytes,
		maxAttempts: maxAttempts,
		limiter:     worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		adapters:    adapters.NewRegistry(),
		logger:      zap.NewNop(),
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(cfg.UserAgent, cfg.Timeout, transport)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the readable text of rawURL. Failures are *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	key := cache.Key(cache.NamespacePage, rawURL)
	if page, ok := cache.GetJSON[*Page](f.cache, key); ok && page != nil {
		f.logger.Debug("page cache hit", zap.String("url", rawURL))
		return page, nil
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, &FetchError{URL: rawURL, Stage: StageRobots, Err: err}
		}
		if !allowed {
			return nil, &FetchError{URL: rawURL, Stage: StageRobots, Err: ErrDisallowed}
		}
		f.limiter.ApplyCrawlDelay(rawURL, delay)
	}

	result, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Stage: StageFetch, Err: err}
	}

	doc, err := f.adapters.Parse(result.FinalURL, result.ContentType, bytes.NewReader(result.Body))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Stage: StageParse, Err: err}
	}

	page := &Page{
		URL:         rawURL,
		FinalURL:    result.FinalURL,
		Title:       doc.Title,
		Text:        doc.Text,
		ContentType: result.ContentType,
	}
	cache.SetJSON(f.cache, key, page, f.cacheTTL)

	f.logger.Debug("fetched page",
		zap.String("url", rawURL),
		zap.String("adapter", doc.Adapter),
		zap.Int("bytes", len(result.Body)),
	)
	return page, nil
}

// FetchResult is a raw HTTP response body
type FetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    string
}

// FetchWithRetry fetches rawURL, retrying connection errors, 429 and 5xx
// responses with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}

		result, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt < f.maxAttempts {
			f.logger.Debug("retrying fetch",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			fetchSleepFunc(time.Duration(1<<(attempt-1)) * 500 * time.Millisecond)
		}
	}
	return nil, lastErr
}

// errConnection marks transport failures, which are worth retrying
var errConnection = errors.New("fetch")

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isReadable(contentType) {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        body,
		ContentType: contentType,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// isRetryableFetchError reports whether a fetch failure is transient
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= 500
	}
	return errors.Is(err, errConnection)
}

// isReadable accepts HTML and plain text; a missing type is sniffed by the parser
func isReadable(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" ||
		strings.Contains(ct, "text/html") ||
		strings.Contains(ct, "application/xhtml") ||
		strings.HasPrefix(ct, "text/plain")
}
