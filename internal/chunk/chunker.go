// Package chunk splits page text into overlapping, bounded windows.
package chunk

import (
	"iter"
	"strings"

	"github.com/ppiankov/factlens/internal/model"
)

// Chunker produces token windows of at most Size tokens.
// Tokens are whitespace-separated words.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. An overlap that would stop the window from
// advancing is clamped to size-1.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Size returns the maximum tokens per chunk
func (c *Chunker) Size() int { return c.size }

// Overlap returns the tokens shared by consecutive chunks
func (c *Chunker) Overlap() int { return c.overlap }

// Chunks returns the chunk sequence for text. The sequence is lazy and can be
// ranged over more than once; empty or blank text yields nothing.
func (c *Chunker) Chunks(sourceURL, text string) iter.Seq[model.ContentChunk] {
	return func(yield func(model.ContentChunk) bool) {
		tokens := strings.Fields(text)
		step := c.size - c.overlap

		for index, start := 0, 0; start < len(tokens); index, start = index+1, start+step {
			end := min(start+c.size, len(tokens))
			chunk := model.ContentChunk{
				SourceURL:  sourceURL,
				Index:      index,
				Text:       strings.Join(tokens[start:end], " "),
				TokenCount: end - start,
			}
			if !yield(chunk) {
				return
			}
			if end == len(tokens) {
				return
			}
		}
	}
}

// Take collects at most n chunks from seq; n <= 0 collects everything
func Take(seq iter.Seq[model.ContentChunk], n int) []model.ContentChunk {
	var out []model.ContentChunk
	for ch := range seq {
		if n > 0 && len(out) >= n {
			break
		}
		out = append(out, ch)
	}
	return out
}

// Truncate cuts text to at most maxLen bytes without splitting a UTF-8 rune;
// maxLen <= 0 leaves text unchanged
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	cut := maxLen
	for cut > 0 && !utf8RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
