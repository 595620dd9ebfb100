package model

// SourceCandidate is a URL proposed by discovery for one crawl invocation
type SourceCandidate struct {
	URL       string        `json:"url"`
	Domain    string        `json:"domain"`          // Normalized host (lowercase, no www., no port)
	Title     string        `json:"title,omitempty"` // Search result title, if any
	Authority AuthorityTier `json:"authority"`       // Ranking signal used to pick the top-K
}

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Official records, statutes, academic papers, wire services
	TierSecondary AuthorityTier = 2 // Encyclopedias, major publishers, reputable media
	TierTertiary  AuthorityTier = 3 // Blogs, forums, personal websites
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// Rank orders tiers for selection; lower is better and unknown sorts last
func (t AuthorityTier) Rank() int {
	if t == TierUnknown {
		return 4
	}
	return int(t)
}

// ContentChunk is a bounded token window of fetched page text
type ContentChunk struct {
	SourceURL  string `json:"source_url"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// RelevanceVerdict gates extraction for a single chunk
type RelevanceVerdict struct {
	ChunkIndex int  `json:"chunk_index"`
	IsRelevant bool `json:"is_relevant"`
}
