package service

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wordText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%04d", i)
	}
	return strings.Join(words, " ")
}

// sharedOverlap returns the length of the longest suffix of a that is a prefix of b.
func sharedOverlap(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	max := len(ra)
	if len(rb) < max {
		max = len(rb)
	}
	for l := max; l > 0; l-- {
		if string(ra[len(ra)-l:]) == string(rb[:l]) {
			return l
		}
	}
	return 0
}

func TestChunker_ShortTextIsSingleFragment(t *testing.T) {
	c := NewChunker(DefaultChunkConfig())

	fragments := c.Split([]string{"Alice Smith. Python, AWS, 5 years."}, "alice.pdf")

	require.Len(t, fragments, 1)
	assert.Equal(t, "Alice Smith. Python, AWS, 5 years.", fragments[0].Text)
	assert.Equal(t, "alice.pdf", fragments[0].SourceID)
	assert.Equal(t, 0, fragments[0].FragmentIndex)
}

func TestChunker_EmptyInput(t *testing.T) {
	c := NewChunker(DefaultChunkConfig())

	assert.Empty(t, c.Split(nil, "a.pdf"))
	assert.Empty(t, c.Split([]string{"", "  \n "}, "a.pdf"))
}

func TestChunker_RespectsMaxSizeAndIndexes(t *testing.T) {
	c := NewChunker(DefaultChunkConfig())

	fragments := c.Split([]string{wordText(1200)}, "bob.pdf")

	require.Greater(t, len(fragments), 3)
	for i, f := range fragments {
		assert.LessOrEqual(t, utf8.RuneCountInString(f.Text), 2000)
		assert.Equal(t, i, f.FragmentIndex)
		assert.Equal(t, "bob.pdf", f.SourceID)
		assert.NotEmpty(t, strings.TrimSpace(f.Text))
	}
}

func TestChunker_ConsecutiveFragmentsOverlap(t *testing.T) {
	cfg := DefaultChunkConfig()
	c := NewChunker(cfg)

	fragments := c.Split([]string{wordText(1500)}, "carol.pdf")
	require.Greater(t, len(fragments), 2)

	for i := 0; i+1 < len(fragments); i++ {
		overlap := sharedOverlap(fragments[i].Text, fragments[i+1].Text)
		assert.LessOrEqual(t, overlap, cfg.Overlap, "fragment %d", i)
		assert.GreaterOrEqual(t, overlap, cfg.Overlap-cfg.Overlap/4-1, "fragment %d", i)
	}
}

func TestChunker_PrefersParagraphBoundaries(t *testing.T) {
	c := NewChunker(ChunkConfig{MaxChars: 100, MinChars: 20, Overlap: 0})
	para := strings.Repeat("x", 60)

	fragments := c.Split([]string{para + "\n\n" + para + "\n\n" + para}, "d.pdf")

	require.Len(t, fragments, 3)
	for _, f := range fragments {
		assert.Equal(t, para, f.Text)
	}
}

func TestChunker_PagesJoinedAcrossBoundaries(t *testing.T) {
	c := NewChunker(ChunkConfig{MaxChars: 100, MinChars: 20, Overlap: 0})

	fragments := c.Split([]string{"page one", "", "page two"}, "e.pdf")

	require.Len(t, fragments, 1)
	assert.Equal(t, "page one\n\npage two", fragments[0].Text)
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(DefaultChunkConfig())
	pages := []string{wordText(700), wordText(900)}

	assert.Equal(t, c.Split(pages, "f.pdf"), c.Split(pages, "f.pdf"))
}

func TestChunker_HardCutWithoutWhitespace(t *testing.T) {
	c := NewChunker(ChunkConfig{MaxChars: 50, MinChars: 10, Overlap: 10})

	runes := make([]rune, 120)
	for i := range runes {
		runes[i] = rune(0x4E00 + i)
	}

	fragments := c.Split([]string{string(runes)}, "g.pdf")

	require.NotEmpty(t, fragments)
	assert.Equal(t, 50, utf8.RuneCountInString(fragments[0].Text))
	assert.Equal(t, 10, sharedOverlap(fragments[0].Text, fragments[1].Text))
}

func TestNewChunker_NormalisesConfig(t *testing.T) {
	assert.Equal(t, DefaultChunkConfig(), NewChunker(ChunkConfig{}).Config())

	cfg := NewChunker(ChunkConfig{MaxChars: 100, Overlap: 100}).Config()
	assert.Equal(t, 0, cfg.Overlap)
	assert.Equal(t, 50, cfg.MinChars)
}

func TestChunker_MaxChunksCaps(t *testing.T) {
	c := NewChunker(ChunkConfig{MaxChars: 100, MinChars: 50, Overlap: 10, MaxChunks: 2})

	assert.Len(t, c.Split([]string{wordText(200)}, "h.pdf"), 2)
}
