package extract

import (
	"context"
	"fmt"
	"os"
)

// TextExtractor reads plain-text documents as a single page.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Extract(_ context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text document: %w", err)
	}
	return []string{string(data)}, nil
}
