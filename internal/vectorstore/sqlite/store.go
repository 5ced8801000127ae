// Package sqlite stores index entries in a local SQLite file and answers
// nearest-neighbour queries by exact cosine scan.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/cloo-solutions/resumeqa/internal/domain"
	"github.com/cloo-solutions/resumeqa/internal/vectorstore/sqlite/migrations"
)

// DBFileName is the database file created inside the index directory.
const DBFileName = "index.db"

// Store is a durable VectorIndex backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the index under dir and applies pending migrations.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("index directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dir, DBFileName)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running index migrations: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	// m.Close would close db, which the Store still owns.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts entries in a single transaction. Either all entries are
// stored or none are.
func (s *Store) Append(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if err := domain.ValidateIndexEntry(&entries[i]); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_entries (id, source_id, fragment_index, content, embedding, dimensions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID,
			e.SourceID,
			e.FragmentIndex,
			e.Text,
			encodeEmbedding(e.Embedding),
			len(e.Embedding),
			createdAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entries: %w", err)
	}
	return nil
}

// Query returns up to k entries most similar to embedding, highest first.
// Entries of a different dimension are an error.
func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredEntry, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(embedding) == 0 {
		return nil, errors.New("query embedding is empty")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, fragment_index, content, embedding, created_at
		FROM index_entries
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	best := newTopK(k)
	for rows.Next() {
		var (
			e         domain.IndexEntry
			blob      []byte
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.SourceID, &e.FragmentIndex, &e.Text, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Embedding, err = decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding entry %s: %w", e.ID, err)
		}
		if len(e.Embedding) != len(embedding) {
			return nil, fmt.Errorf("entry %s has %d dimensions, query has %d", e.ID, len(e.Embedding), len(embedding))
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

		best.offer(domain.ScoredEntry{IndexEntry: e, Score: cosineSimilarity(embedding, e.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	return best.sorted(), nil
}

// CountBySource returns the number of entries stored for sourceID.
func (s *Store) CountBySource(ctx context.Context, sourceID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_entries WHERE source_id = ?`, sourceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// Count returns the total number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}
