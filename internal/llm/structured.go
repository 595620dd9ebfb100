package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Structured runs a schema-constrained call on c and decodes the answer into T.
// A response that does not decode counts as a failed attempt and is retried.
func Structured[T any](ctx context.Context, c *Client, req CompletionRequest) (T, error) {
	var out T
	_, err := c.do(ctx, req, func(resp *Completion) error {
		var v T
		if err := DecodeJSON(resp.Text, &v); err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// DecodeJSON decodes the JSON object in text into v.
// Markdown code fences and prose around the object are ignored.
func DecodeJSON(text string, v any) error {
	body := extractJSONObject(text)
	if body == "" {
		return fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
