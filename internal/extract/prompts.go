package extract

import (
	"fmt"
	"strings"

	"github.com/ppiankov/factlens/internal/model"
)

const relevanceSystemPrompt = `You screen text chunks for a research assistant.
Answer whether the chunk contains concrete, factual information about the topic:
events, dates, statements, data or outcomes. Marketing copy, navigation text,
unrelated chatter and opinion without facts are not relevant.`

const extractionSystemPrompt = `You are a highly precise data extractor.
Extract relevant findings from the provided text chunk.

Rules:
1. Atomic findings: extract specific, distinct facts. Avoid vague summaries.
2. Dates: if a specific date is mentioned, capture it. If it is vague (e.g. "last summer"), capture that too.
3. Accuracy: do not invent anything. Only extract what is in the text.
4. Quantify: keep numbers, percentages and names exactly as written.
5. Write complete sentences and make sure every string is valid JSON.`

func relevancePrompt(topic string, chunk model.ContentChunk) string {
	return fmt.Sprintf("<Topic>\n%s\n</Topic>\n\n<Text Chunk>\n%s\n</Text Chunk>", topic, chunk.Text)
}

func extractionPrompt(topic string, t model.Taxonomy, chunk model.ContentChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<Topic>\n%s\n</Topic>\n\n<Categories>\n", topic)
	for _, c := range t.Categories {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
	}
	fmt.Fprintf(&b, "</Categories>\n\n<Text Chunk>\n%s\n</Text Chunk>", chunk.Text)
	return b.String()
}
