package llm

import (
	"context"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/genai"
)

func TestToGenAISchema(t *testing.T) {
	def := &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"findings": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"description": {Type: jsonschema.String},
						"category":    {Type: jsonschema.String, Enum: []string{"context", "outcome"}},
					},
					Required: []string{"description", "category"},
				},
			},
			"done": {Type: jsonschema.Boolean},
		},
		Required: []string{"findings"},
	}

	s := toGenAISchema(def)
	if s.Type != genai.TypeObject {
		t.Fatalf("Type = %v", s.Type)
	}
	findings := s.Properties["findings"]
	if findings == nil || findings.Type != genai.TypeArray || findings.Items == nil {
		t.Fatalf("Unexpected findings schema: %+v", findings)
	}
	cat := findings.Items.Properties["category"]
	if cat == nil || cat.Type != genai.TypeString || len(cat.Enum) != 2 {
		t.Errorf("Unexpected category schema: %+v", cat)
	}
	if s.Properties["done"].Type != genai.TypeBoolean {
		t.Errorf("Unexpected done type: %v", s.Properties["done"].Type)
	}
	if toGenAISchema(nil) != nil {
		t.Error("nil schema should convert to nil")
	}
}

func TestNewGeminiProvider_MissingKey(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), Config{}); err == nil {
		t.Fatal("Expected error for missing API key")
	}
}

func TestToGenAIContents(t *testing.T) {
	contents := toGenAIContents([]Message{
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "answer"},
		{Role: "system", Content: "note"},
	})
	if len(contents) != 3 {
		t.Fatalf("Expected 3 contents, got %d", len(contents))
	}

	wantRoles := []genai.Role{genai.RoleUser, genai.RoleModel, genai.RoleUser}
	for i, c := range contents {
		if c.Role != string(wantRoles[i]) {
			t.Errorf("contents[%d].Role = %q, want %q", i, c.Role, wantRoles[i])
		}
		if len(c.Parts) != 1 || c.Parts[0].Text == "" {
			t.Errorf("contents[%d] has unexpected parts: %+v", i, c.Parts)
		}
	}
	if contents[1].Parts[0].Text != "answer" {
		t.Errorf("Text = %q", contents[1].Parts[0].Text)
	}
}
