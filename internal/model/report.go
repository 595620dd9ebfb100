package model

import "time"

// Report is the final output of one research session
type Report struct {
	Question    string    `json:"question"`
	GeneratedAt time.Time `json:"generated_at"`
	Taxonomy    string    `json:"taxonomy"`

	Items     []ReportItem      `json:"items"`               // Structured, deduplicated findings
	Aggregate CategoryAggregate `json:"aggregate,omitempty"` // Cumulative per-category text
	Sources   []SourceCandidate `json:"sources"`             // Every source attempted during the session

	Iterations        int    `json:"iterations"`
	TerminationReason string `json:"termination_reason"`
	FindingsCount     int    `json:"findings_count"` // Raw findings before dedup
	FailedSources     int    `json:"failed_sources"` // URLs that could not be fetched or processed

	LLM LLMInfo `json:"llm"`
}

// ReportItem is one structured entry of the final report
type ReportItem struct {
	ID          string `json:"id"`
	Topic       string `json:"topic"`
	Details     string `json:"details"`
	Stance      string `json:"stance"`
	SourceTitle string `json:"sourceTitle"`
	SourceURL   string `json:"sourceUrl"`
	Category    string `json:"category,omitempty"`
}

// FallbackStance marks items whose stance was never analysed
const FallbackStance = "Pending Analysis"

// LLMInfo records which models produced the report
type LLMInfo struct {
	ToolsModel      string `json:"tools_model"`
	StructuredModel string `json:"structured_model"`
	ChunkModel      string `json:"chunk_model"`
	TokensUsed      int    `json:"tokens_used,omitempty"`
}
