// Package report renders research reports as JSON, Markdown and a terminal summary.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/factlens/internal/model"
)

// Writer renders a report to its destination
type Writer interface {
	Write(report *model.Report) (int, error)
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// WriteFile renders report into path with the writer built by newWriter.
// Parent directories are created as needed.
func WriteFile(path string, report *model.Report, newWriter func(io.Writer) Writer) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	if _, err := newWriter(f).Write(report); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
