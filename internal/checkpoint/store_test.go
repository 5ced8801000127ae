package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "processed_files.txt"))

	done, err := s.Completed(context.Background())

	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestFileStore_MarkCompletedAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_files.txt")
	s := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, s.MarkCompleted(ctx, "alice.pdf"))
	require.NoError(t, s.MarkCompleted(ctx, "bob.pdf"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alice.pdf\nbob.pdf\n", string(data))

	done, err := s.Completed(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"alice.pdf": {}, "bob.pdf": {}}, done)
}

func TestFileStore_ToleratesBlankAndDuplicateLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_files.txt")
	require.NoError(t, os.WriteFile(path, []byte("alice.pdf\n\n  \nalice.pdf\r\nbob.pdf"), 0o644))
	s := NewFileStore(path)

	done, err := s.Completed(context.Background())

	require.NoError(t, err)
	assert.Len(t, done, 2)
	assert.Contains(t, done, "alice.pdf")
	assert.Contains(t, done, "bob.pdf")
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_files.txt")
	ctx := context.Background()
	require.NoError(t, NewFileStore(path).MarkCompleted(ctx, "carol.pdf"))

	done, err := NewFileStore(path).Completed(ctx)

	require.NoError(t, err)
	assert.Contains(t, done, "carol.pdf")
}

func TestFileStore_RejectsInvalidID(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "processed_files.txt"))

	for _, id := range []string{"", "   ", "two\nlines"} {
		assert.Error(t, s.MarkCompleted(context.Background(), id), id)
	}
}

func TestFileStore_CancelledContext(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "processed_files.txt"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.MarkCompleted(ctx, "alice.pdf"), context.Canceled)
	_, err := s.Completed(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileStore_KeepsSurroundingSpaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_files.txt")
	s := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, s.MarkCompleted(ctx, " alice.pdf"))
	require.NoError(t, s.MarkCompleted(ctx, "bob.pdf "))

	done, err := NewFileStore(path).Completed(ctx)

	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{" alice.pdf": {}, "bob.pdf ": {}}, done)
	assert.NotContains(t, done, "alice.pdf")
}

func TestFileStore_RejectsCarriageReturn(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "processed_files.txt"))

	assert.Error(t, s.MarkCompleted(context.Background(), "alice.pdf\r"))
}
