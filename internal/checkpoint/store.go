// Package checkpoint records which source documents have been fully indexed.
package checkpoint

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
)

// Store is the durable set of completed document ids.
type Store interface {
	Completed(ctx context.Context) (map[string]struct{}, error)
	MarkCompleted(ctx context.Context, id string) error
}

// FileStore keeps one document id per line in an append-only text file.
// Blank and duplicate lines are tolerated on read. Ids are stored exactly,
// surrounding spaces included; only a trailing CR is dropped.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Completed returns the set of recorded ids. A missing file is an empty set.
func (s *FileStore) Completed(ctx context.Context) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer f.Close()

	done := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(id) == "" {
			continue
		}
		done[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	return done, nil
}

// MarkCompleted appends id verbatim and syncs the file before returning.
// Ids that could not be read back unchanged are rejected.
func (s *FileStore) MarkCompleted(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "\r\n") {
		return fmt.Errorf("invalid checkpoint id %q", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}

	if _, err := f.WriteString(id + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	return f.Close()
}
