package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"
)

type PDFExtractor struct {
	logger *slog.Logger
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	return &PDFExtractor{logger: logger}
}

// Extract returns one string per page. Null pages yield an empty string so
// that page positions are preserved.
func (e *PDFExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	totalPage := reader.NumPage()
	e.logger.Debug("starting PDF text extraction",
		slog.String("path", path),
		slog.Int("total_pages", totalPage))

	pages := make([]string, 0, totalPage)
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			e.logger.Warn("null page encountered",
				slog.String("path", path),
				slog.Int("page_number", pageIndex))
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", pageIndex, err)
		}
		pages = append(pages, text)
	}

	return pages, nil
}
