package model

import "testing"

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \n\t", ""},
		{"trims", "  hello world  ", "hello world"},
		{"trailing backslash becomes possessive", `Smith\`, "Smith's"},
		{"multiple trailing backslashes", `Smith\\`, "Smith's"},
		{"escaped quotes unescaped", `he said \"no\"`, `he said "no"`},
		{"unbalanced quote closed", `the "leak`, `the "leak"`},
		{"balanced quotes untouched", `the "leak" spread`, `the "leak" spread`},
		{"backslash inside untouched", `a\b`, `a\b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.in); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewRawFinding(t *testing.T) {
	ctx := "  March 2021 "
	f := NewRawFinding(`  The CEO\`, &ctx, " conflict ", " https://a.com/x ")

	if f.Description != "The CEO's" {
		t.Errorf("Description = %q", f.Description)
	}
	if f.DateOrContext == nil || *f.DateOrContext != "March 2021" {
		t.Errorf("DateOrContext = %v", f.DateOrContext)
	}
	if f.Category != "conflict" {
		t.Errorf("Category = %q", f.Category)
	}
	if f.SourceURL != "https://a.com/x" {
		t.Errorf("SourceURL = %q", f.SourceURL)
	}

	blank := "   "
	g := NewRawFinding("x", &blank, "context", "")
	if g.DateOrContext != nil {
		t.Errorf("blank DateOrContext should be dropped, got %q", *g.DateOrContext)
	}
}

func TestRawFinding_Line(t *testing.T) {
	d := "2020"
	f := RawFinding{Description: "Leak published", DateOrContext: &d, SourceURL: "https://a.com"}
	want := "- Leak published (2020) [https://a.com]"
	if got := f.Line(); got != want {
		t.Errorf("Line() = %q, want %q", got, want)
	}
}

func TestTaxonomy(t *testing.T) {
	tax, err := BuiltinTaxonomy("factcheck")
	if err != nil {
		t.Fatalf("BuiltinTaxonomy: %v", err)
	}
	if !tax.Has("final_verdict") || tax.Has("conflict") {
		t.Errorf("unexpected categories: %v", tax.Names())
	}
	if err := tax.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	if _, err := BuiltinTaxonomy("astrology"); err == nil {
		t.Error("expected error for unknown taxonomy")
	}

	dup := Taxonomy{Name: "dup", Categories: []Category{{Name: "a"}, {Name: "a"}}}
	if err := dup.Validate(); err == nil {
		t.Error("expected duplicate category error")
	}
	if err := (Taxonomy{Name: "none"}).Validate(); err == nil {
		t.Error("expected empty taxonomy error")
	}
}

func TestCategoryAggregate(t *testing.T) {
	tax := DramaTaxonomy()
	agg := NewAggregate(tax)
	if !agg.IsEmpty() {
		t.Fatal("new aggregate should be empty")
	}

	agg["conflict"] = "- one\n\n  - two  \n"
	if agg.IsEmpty() {
		t.Fatal("aggregate with text should not be empty")
	}

	lines := agg.Lines("conflict")
	if len(lines) != 2 || lines[0] != "- one" || lines[1] != "- two" {
		t.Errorf("Lines = %q", lines)
	}

	empty := agg.EmptyCategories(tax)
	if len(empty) != 3 || empty[0] != "context" || empty[1] != "reaction" || empty[2] != "outcome" {
		t.Errorf("EmptyCategories = %v", empty)
	}

	clone := agg.Clone()
	clone["conflict"] = "changed"
	if agg["conflict"] == "changed" {
		t.Error("Clone must not share storage")
	}
}
