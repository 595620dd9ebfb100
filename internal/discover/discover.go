// Package discover turns a research question into a ranked list of new sources.
package discover

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/search"
	"github.com/ppiankov/factlens/internal/util"
)

// Discoverer finds candidate sources for a question, skipping domains
// already used in the session
type Discoverer struct {
	searcher   search.Searcher
	classifier *AuthorityClassifier
	maxResults int
	topK       int
	logger     *zap.Logger
}

// NewDiscoverer creates a discoverer. topK <= 0 keeps every candidate.
func NewDiscoverer(searcher search.Searcher, classifier *AuthorityClassifier, maxResults, topK int, logger *zap.Logger) *Discoverer {
	if classifier == nil {
		classifier = NewAuthorityClassifier(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{
		searcher:   searcher,
		classifier: classifier,
		maxResults: maxResults,
		topK:       topK,
		logger:     logger,
	}
}

// Discover searches for question and returns at most topK candidates:
// one URL per unused domain, ordered by authority tier. Candidates of equal
// tier keep their search order.
func (d *Discoverer) Discover(ctx context.Context, question string, usedDomains map[string]bool) ([]model.SourceCandidate, error) {
	results, err := d.searcher.Search(ctx, question, d.maxResults)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", question, err)
	}

	seen := make(map[string]bool)
	var candidates []model.SourceCandidate
	for _, r := range results {
		domain, err := util.NormalizeDomain(r.URL)
		if err != nil {
			d.logger.Debug("skipping unparsable search result", zap.String("url", r.URL), zap.Error(err))
			continue
		}
		if usedDomains[domain] || seen[domain] {
			continue
		}
		seen[domain] = true
		candidates = append(candidates, model.SourceCandidate{
			URL:       r.URL,
			Domain:    domain,
			Title:     r.Title,
			Authority: d.classifier.Classify(r.URL),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Authority.Rank() < candidates[j].Authority.Rank()
	})

	if d.topK > 0 && len(candidates) > d.topK {
		candidates = candidates[:d.topK]
	}

	d.logger.Debug("discovered sources",
		zap.String("question", question),
		zap.Int("results", len(results)),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}
