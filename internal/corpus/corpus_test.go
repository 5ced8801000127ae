package corpus

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/resumeqa/internal/domain"
)

func touch(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func ids(docs []domain.SourceDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestDiscover_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "carol.pdf", "c")
	touch(t, dir, "alice.pdf", "a")
	touch(t, dir, "Bob.PDF", "b")
	touch(t, dir, "notes.txt", "n")
	touch(t, dir, "README", "r")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.pdf"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	touch(t, filepath.Join(dir, "nested"), "dave.pdf", "d")

	docs, err := Discover(dir, []string{".pdf"}, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"Bob.PDF", "alice.pdf", "carol.pdf"}, ids(docs))
	assert.Equal(t, filepath.Join(dir, "alice.pdf"), docs[1].Path)
	assert.Equal(t, int64(1), docs[1].Size)
}

func TestDiscover_MultipleExtensions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf", "")
	touch(t, dir, "b.txt", "")
	touch(t, dir, "c.md", "")

	docs, err := Discover(dir, []string{"pdf", " .TXT "}, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.txt"}, ids(docs))
}

func TestDiscover_EmptyDirectory(t *testing.T) {
	docs, err := Discover(t.TempDir(), []string{".pdf"}, nil)

	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDiscover_MissingDirectory(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "resumes"), []string{".pdf"}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorpusNotFound)
}

func TestDiscover_PathIsFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "resumes", "")

	_, err := Discover(filepath.Join(dir, "resumes"), []string{".pdf"}, nil)

	assert.ErrorIs(t, err, domain.ErrCorpusNotFound)
}

func TestDiscover_SkipsLineBreakNames(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "alice.pdf", "a")
	touch(t, dir, "bad\nname.pdf", "b")
	touch(t, dir, " spaced.pdf", "c")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	docs, err := Discover(dir, []string{".pdf"}, logger)

	require.NoError(t, err)
	assert.Equal(t, []string{" spaced.pdf", "alice.pdf"}, ids(docs))
	assert.Contains(t, buf.String(), "skipping document with a line break")
}
