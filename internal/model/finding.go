package model

import (
	"fmt"
	"strings"
)

// Category is one bucket of the research taxonomy
type Category struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description" yaml:"description" mapstructure:"description"`
}

// Taxonomy is the ordered set of categories findings are sorted into.
// It is configuration, not structure: any non-empty list of uniquely named
// categories is valid.
type Taxonomy struct {
	Name       string     `json:"name" yaml:"name" mapstructure:"name"`
	Categories []Category `json:"categories" yaml:"categories" mapstructure:"categories"`
}

// Built-in taxonomy names
const (
	TaxonomyDrama     = "drama"
	TaxonomyFactCheck = "factcheck"
)

// DramaTaxonomy tracks a controversy from background to resolution
func DramaTaxonomy() Taxonomy {
	return Taxonomy{
		Name: TaxonomyDrama,
		Categories: []Category{
			{Name: "context", Description: "Background info, previous relationships, or the origin of the conflict."},
			{Name: "conflict", Description: "The main incident, the accusation, the leak, or the scandal itself."},
			{Name: "reaction", Description: "Public responses, statements, lawsuits, or evidence posted by others."},
			{Name: "outcome", Description: "Current status, consequences, or final resolution."},
		},
	}
}

// FactCheckTaxonomy weighs a claim from its origin to a verdict
func FactCheckTaxonomy() Taxonomy {
	return Taxonomy{
		Name: TaxonomyFactCheck,
		Categories: []Category{
			{Name: "origin_of_belief", Description: "Where the idea came from and why people believe it."},
			{Name: "scientific_evidence", Description: "Studies, statistics and measured data. Not anecdotes."},
			{Name: "expert_consensus", Description: "What official bodies and domain experts say."},
			{Name: "final_verdict", Description: "The bottom line: busted, plausible, or confirmed."},
		},
	}
}

// BuiltinTaxonomy returns a named built-in taxonomy
func BuiltinTaxonomy(name string) (Taxonomy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case TaxonomyDrama, "":
		return DramaTaxonomy(), nil
	case TaxonomyFactCheck, "fact_check", "fact-check":
		return FactCheckTaxonomy(), nil
	default:
		return Taxonomy{}, fmt.Errorf("unknown taxonomy: %s (supported: %s, %s)", name, TaxonomyDrama, TaxonomyFactCheck)
	}
}

// Validate checks that the taxonomy is usable
func (t Taxonomy) Validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("taxonomy %q has no categories", t.Name)
	}
	seen := make(map[string]bool, len(t.Categories))
	for _, c := range t.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("taxonomy %q has a category without a name", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("taxonomy %q has duplicate category %q", t.Name, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Names returns category names in taxonomy order
func (t Taxonomy) Names() []string {
	names := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		names[i] = c.Name
	}
	return names
}

// Has reports whether name is one of the taxonomy categories
func (t Taxonomy) Has(name string) bool {
	for _, c := range t.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// RawFinding is an atomic piece of evidence extracted from one source
type RawFinding struct {
	Description   string  `json:"description"`
	DateOrContext *string `json:"date_or_context,omitempty"`
	Category      string  `json:"category"`
	SourceURL     string  `json:"source_url"`
}

// NewRawFinding builds a finding and sanitizes its free-text fields once
func NewRawFinding(description string, dateOrContext *string, category, sourceURL string) RawFinding {
	f := RawFinding{
		Description: SanitizeText(description),
		Category:    strings.TrimSpace(category),
		SourceURL:   strings.TrimSpace(sourceURL),
	}
	if dateOrContext != nil {
		if d := SanitizeText(*dateOrContext); d != "" {
			f.DateOrContext = &d
		}
	}
	return f
}

// Line renders the finding as a bullet for aggregate text
func (f RawFinding) Line() string {
	var b strings.Builder
	b.WriteString("- ")
	b.WriteString(f.Description)
	if f.DateOrContext != nil && *f.DateOrContext != "" {
		b.WriteString(" (")
		b.WriteString(*f.DateOrContext)
		b.WriteString(")")
	}
	if f.SourceURL != "" {
		b.WriteString(" [")
		b.WriteString(f.SourceURL)
		b.WriteString("]")
	}
	return b.String()
}
