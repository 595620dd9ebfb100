package supervisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/factlens/internal/model"
)

// TerminationReason says why the loop stopped
type TerminationReason string

const (
	ReasonFinished       TerminationReason = "finished"
	ReasonIdle           TerminationReason = "idle"
	ReasonBudgetExceeded TerminationReason = "budget_exceeded"
	ReasonCancelled      TerminationReason = "cancelled"
)

// HistoryEntry is one message of the supervisor conversation
type HistoryEntry struct {
	Role    string    `json:"role"` // assistant or tool
	Tool    string    `json:"tool,omitempty"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session is the in-memory state of one research run. Only the supervisor
// loop mutates it, between turns.
type Session struct {
	ID                string
	Question          string
	Taxonomy          model.Taxonomy
	Iterations        int
	IdleTurns         int
	UsedDomains       map[string]bool
	Findings          []model.RawFinding
	Aggregate         model.CategoryAggregate
	History           []HistoryEntry
	Sources           []model.SourceCandidate
	FailedSources     int
	Terminated        bool
	TerminationReason TerminationReason
}

// NewSession starts a session for question
func NewSession(question string, taxonomy model.Taxonomy) (*Session, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	return &Session{
		ID:          uuid.New().String(),
		Question:    question,
		Taxonomy:    taxonomy,
		UsedDomains: make(map[string]bool),
		Aggregate:   model.NewAggregate(taxonomy),
	}, nil
}

// AppendFindings adds findings in order
func (s *Session) AppendFindings(findings []model.RawFinding) {
	s.Findings = append(s.Findings, findings...)
}

// ReplaceAggregate swaps in the reconciled aggregate
func (s *Session) ReplaceAggregate(agg model.CategoryAggregate) {
	s.Aggregate = agg
}

// MarkUsed records attempted sources so later turns skip their domains
func (s *Session) MarkUsed(sources []model.SourceCandidate) {
	for _, src := range sources {
		if src.Domain == "" || s.UsedDomains[src.Domain] {
			continue
		}
		s.UsedDomains[src.Domain] = true
		s.Sources = append(s.Sources, src)
	}
}

// Record appends a history entry
func (s *Session) Record(role, tool, content string) {
	s.History = append(s.History, HistoryEntry{Role: role, Tool: tool, Content: content, At: time.Now()})
}

// LastMessage returns the newest history content, or "" when there is none
func (s *Session) LastMessage() string {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[len(s.History)-1].Content
}

func (s *Session) terminate(reason TerminationReason) {
	s.Terminated = true
	s.TerminationReason = reason
}

// Summary describes progress for the planning prompt: the finding count,
// the five most recent findings and the categories still empty
func (s *Session) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Currently have %d findings collected.", len(s.Findings))

	if n := len(s.Findings); n > 0 {
		b.WriteString("\nRecent findings:")
		for _, f := range s.Findings[max(0, n-5):] {
			fmt.Fprintf(&b, "\n- [%s] %s", f.Category, truncate(f.Description, 160))
		}
	}

	if empty := s.Aggregate.EmptyCategories(s.Taxonomy); len(empty) > 0 {
		fmt.Fprintf(&b, "\nCategories with no findings yet: %s", strings.Join(empty, ", "))
	} else {
		b.WriteString("\nEvery category has findings.")
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
