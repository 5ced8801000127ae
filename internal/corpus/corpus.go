// Package corpus lists the source documents of a flat corpus directory.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloo-solutions/resumeqa/internal/domain"
)

// Discover lists regular files directly under dir whose extension matches
// one of exts (case-insensitive), sorted by name. Subdirectories are ignored.
// Names containing a line break cannot be checkpointed and are skipped with
// a warning on logger, which may be nil.
func Discover(dir string, exts []string, logger *slog.Logger) ([]domain.SourceDocument, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, domain.ErrCorpusNotFound.Message, fmt.Errorf("%s: %w", dir, err))
		}
		return nil, fmt.Errorf("failed to stat corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, domain.ErrCorpusNotFound.Message, fmt.Errorf("%s is not a directory", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory: %w", err)
	}

	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	docs := make([]domain.SourceDocument, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		if strings.ContainsAny(entry.Name(), "\r\n") {
			if logger != nil {
				logger.Warn("skipping document with a line break in its name",
					slog.String("name", entry.Name()))
			}
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		docs = append(docs, domain.SourceDocument{
			ID:   entry.Name(),
			Path: filepath.Join(dir, entry.Name()),
			Size: fi.Size(),
		})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}
