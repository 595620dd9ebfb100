// Test program to show what the crawler sees on a page: the extracted text
// and the chunks that would be sent to the models.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/factlens/internal/chunk"
	"github.com/ppiankov/factlens/internal/crawl"
	"github.com/ppiankov/factlens/internal/model"
)

func main() {
	fmt.Println("=== Page Extraction Test ===")
	fmt.Println()

	testURLs := os.Args[1:]
	if len(testURLs) == 0 {
		testURLs = []string{
			"https://en.wikipedia.org/wiki/Borscht",
			"https://www.bbc.com/news",
		}
	}

	cfg := model.DefaultConfig()
	fetcher := crawl.NewFetcher(cfg.HTTP)
	chunker := chunk.NewChunker(cfg.Research.ChunkSize, cfg.Research.ChunkOverlap)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, url := range testURLs {
		fmt.Printf("Testing: %s\n", url)
		fmt.Println(strings.Repeat("-", 60))

		page, err := fetcher.Fetch(ctx, url)
		if err != nil {
			fmt.Printf("  Fetch error: %v\n\n", err)
			continue
		}

		text := chunk.Truncate(page.Text, cfg.Research.MaxContentLength)
		fmt.Printf("  Final URL: %s\n", page.FinalURL)
		fmt.Printf("  Title:     %s\n", page.Title)
		fmt.Printf("  Type:      %s\n", page.ContentType)
		fmt.Printf("  Text:      %d chars (%d after truncation)\n", len(page.Text), len(text))

		chunks := chunk.Take(chunker.Chunks(page.FinalURL, text), cfg.Research.MaxChunks)
		fmt.Printf("  Chunks:    %d (cap %d)\n", len(chunks), cfg.Research.MaxChunks)
		for _, c := range chunks {
			fmt.Printf("    [%d] %d tokens: %s\n", c.Index, c.TokenCount, chunk.Truncate(c.Text, 100))
		}
		fmt.Println()
	}

	fmt.Println("=== Test Complete ===")
}
