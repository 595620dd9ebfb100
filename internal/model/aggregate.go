package model

import "strings"

// CategoryAggregate maps a taxonomy category to its accumulated text.
// Key order is defined by the taxonomy, not by the map.
type CategoryAggregate map[string]string

// NewAggregate returns an aggregate with every taxonomy category present and empty
func NewAggregate(t Taxonomy) CategoryAggregate {
	agg := make(CategoryAggregate, len(t.Categories))
	for _, c := range t.Categories {
		agg[c.Name] = ""
	}
	return agg
}

// IsEmpty reports whether every category holds only whitespace
func (a CategoryAggregate) IsEmpty() bool {
	for _, v := range a {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Clone returns an independent copy
func (a CategoryAggregate) Clone() CategoryAggregate {
	out := make(CategoryAggregate, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// EmptyCategories lists categories of t with no text, in taxonomy order
func (a CategoryAggregate) EmptyCategories(t Taxonomy) []string {
	var empty []string
	for _, name := range t.Names() {
		if strings.TrimSpace(a[name]) == "" {
			empty = append(empty, name)
		}
	}
	return empty
}

// Lines splits a category's text into its non-blank lines
func (a CategoryAggregate) Lines(category string) []string {
	return SplitLines(a[category])
}

// SplitLines returns the trimmed non-blank lines of text
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
