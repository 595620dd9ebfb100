package model

import "strings"

// SanitizeText cleans free text produced by a model.
// Escaped quotes are unescaped, a dangling trailing backslash is read as a
// truncated possessive and becomes "'s", and an odd number of double quotes
// is balanced by closing the last one.
func SanitizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	s = strings.ReplaceAll(s, `\"`, `"`)

	if strings.HasSuffix(s, `\`) {
		s = strings.TrimRight(s, `\`) + "'s"
	}

	if strings.Count(s, `"`)%2 == 1 {
		s += `"`
	}

	return strings.TrimSpace(s)
}
