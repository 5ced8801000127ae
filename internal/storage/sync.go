package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ObjectStore is the subset of S3Client used to mirror the corpus
type ObjectStore interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Download(ctx context.Context, key string, w io.Writer) (int64, error)
}

// SyncReport lists what a sync did, by file name
type SyncReport struct {
	Downloaded []string `json:"downloaded"`
	Existing   []string `json:"existing"`
	Ignored    []string `json:"ignored"`
}

// CorpusSyncer copies objects directly under a prefix into the corpus
// directory. Files already present locally are never overwritten, so
// checkpointed documents keep the content they were indexed with.
type CorpusSyncer struct {
	store      ObjectStore
	dir        string
	prefix     string
	extensions map[string]struct{}
	logger     *slog.Logger
}

// NewCorpusSyncer creates a syncer. An empty extension list accepts every file.
func NewCorpusSyncer(store ObjectStore, dir, prefix string, extensions []string, logger *slog.Logger) *CorpusSyncer {
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &CorpusSyncer{
		store:      store,
		dir:        dir,
		prefix:     prefix,
		extensions: exts,
		logger:     logger,
	}
}

// Sync downloads missing objects. A failed download aborts the sync and
// leaves no partial file behind.
func (s *CorpusSyncer) Sync(ctx context.Context) (*SyncReport, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create corpus dir: %w", err)
	}

	objects, err := s.store.ListObjects(ctx, s.prefix)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{}
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		name, ok := s.fileName(obj.Key)
		if !ok {
			report.Ignored = append(report.Ignored, obj.Key)
			continue
		}

		dest := filepath.Join(s.dir, name)
		if _, err := os.Stat(dest); err == nil {
			report.Existing = append(report.Existing, name)
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return report, fmt.Errorf("failed to stat %s: %w", dest, err)
		}

		if err := s.download(ctx, obj.Key, dest); err != nil {
			return report, err
		}
		report.Downloaded = append(report.Downloaded, name)
		s.logger.Info("downloaded corpus document",
			slog.String("key", obj.Key),
			slog.String("source_id", name),
			slog.Int64("size", obj.Size))
	}

	return report, nil
}

// fileName maps a key to a corpus file name. Keys in nested "directories",
// folder markers and filtered extensions are rejected.
func (s *CorpusSyncer) fileName(key string) (string, bool) {
	rel := strings.TrimPrefix(key, s.prefix)
	if rel == "" || strings.Contains(rel, "/") || rel != path.Base(rel) {
		return "", false
	}
	if strings.HasPrefix(rel, ".") {
		return "", false
	}
	if len(s.extensions) > 0 {
		if _, ok := s.extensions[strings.ToLower(filepath.Ext(rel))]; !ok {
			return "", false
		}
	}
	return rel, true
}

func (s *CorpusSyncer) download(ctx context.Context, key, dest string) error {
	tmp, err := os.CreateTemp(s.dir, ".sync-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := s.store.Download(ctx, key, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("failed to move %s into corpus: %w", key, err)
	}
	return nil
}
