package service

import (
	"strings"
	"unicode"

	"github.com/cloo-solutions/resumeqa/internal/domain"
)

// ChunkConfig controls how documents are split into fragments.
type ChunkConfig struct {
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int
}

// DefaultChunkConfig provides sane defaults for resume-sized documents.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  2000,
		MinChars:  1000,
		Overlap:   200,
		MaxChunks: 0,
	}
}

// Chunker splits extracted page texts into overlapping fragments. It is
// deterministic: the same input always yields the same fragments.
type Chunker struct {
	cfg ChunkConfig
}

func NewChunker(cfg ChunkConfig) *Chunker {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxChars {
		cfg.Overlap = 0
	}
	if cfg.MinChars <= 0 || cfg.MinChars > cfg.MaxChars {
		cfg.MinChars = cfg.MaxChars / 2
	}
	return &Chunker{cfg: cfg}
}

func (c *Chunker) Config() ChunkConfig {
	return c.cfg
}

// Split joins non-blank pages with a paragraph break and chunks the result.
// Fragment indices are 0-based and contiguous per document.
func (c *Chunker) Split(pages []string, sourceID string) []domain.TextFragment {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}

	chunks := chunkText(strings.Join(parts, "\n\n"), c.cfg)
	fragments := make([]domain.TextFragment, len(chunks))
	for i, chunk := range chunks {
		fragments[i] = domain.TextFragment{
			Text:          chunk,
			SourceID:      sourceID,
			FragmentIndex: i,
		}
	}
	return fragments
}

// boundaries are tried in order; the first tier with a match in range wins.
var boundaries = []func(runes []rune, i int) bool{
	func(r []rune, i int) bool { return i >= 2 && r[i-1] == '\n' && r[i-2] == '\n' },
	func(r []rune, i int) bool { return r[i-1] == '\n' },
	func(r []rune, i int) bool {
		return i >= 2 && unicode.IsSpace(r[i-1]) && strings.ContainsRune(".!?", r[i-2])
	},
	func(r []rune, i int) bool { return unicode.IsSpace(r[i-1]) },
}

func snapCut(runes []rune, end, minCut int) int {
	for _, isBoundary := range boundaries {
		for i := end; i > minCut; i-- {
			if isBoundary(runes, i) {
				return i
			}
		}
	}
	return end
}

func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	chunks := make([]string, 0, 8)
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			minCut := start + cfg.MinChars
			if minCut > end {
				minCut = start
			}
			end = snapCut(runes, end, minCut)
		}

		if end <= start {
			break
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			nextStart = end - cfg.Overlap
			// Start the next fragment on a word boundary when one is close.
			limit := nextStart + cfg.Overlap/4
			for i := nextStart; i < limit && i < end; i++ {
				if unicode.IsSpace(runes[i-1]) {
					nextStart = i
					break
				}
			}
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}
