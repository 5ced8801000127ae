// Package extract turns corpus documents into ordered page texts.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for extensions with no registered extractor
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrNoText is returned when a document yields no extractable text
	ErrNoText = errors.New("no text content extracted")
)

// PageExtractor extracts the page texts of a single document format.
type PageExtractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// Extractor dispatches to a PageExtractor by file extension.
type Extractor struct {
	byExt  map[string]PageExtractor
	logger *slog.Logger
}

// New returns an Extractor handling .pdf, .txt and .md.
func New(logger *slog.Logger) *Extractor {
	e := &Extractor{
		byExt:  make(map[string]PageExtractor),
		logger: logger,
	}
	e.Register(".pdf", NewPDFExtractor(logger))
	text := NewTextExtractor()
	e.Register(".txt", text)
	e.Register(".md", text)
	return e
}

// Register binds ext (with leading dot, case-insensitive) to x.
func (e *Extractor) Register(ext string, x PageExtractor) {
	e.byExt[strings.ToLower(ext)] = x
}

// Supports reports whether ext has a registered extractor.
func (e *Extractor) Supports(ext string) bool {
	_, ok := e.byExt[strings.ToLower(ext)]
	return ok
}

// Extract returns the ordered page texts of the document at path. A document
// whose pages are all blank fails with ErrNoText.
func (e *Extractor) Extract(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	x, ok := e.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	pages, err := x.Extract(ctx, path)
	if err != nil {
		return nil, err
	}

	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return pages, nil
		}
	}

	e.logger.Warn("no text extracted from document", slog.String("path", path), slog.Int("pages", len(pages)))
	return nil, fmt.Errorf("%w: %s", ErrNoText, filepath.Base(path))
}
