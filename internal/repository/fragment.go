package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/resumeqa/internal/domain"
)

// FragmentRepository stores index entries in Postgres with pgvector and
// ranks them by cosine distance.
type FragmentRepository struct {
	db dbtx
	tx *TxRunner
}

func NewFragmentRepository(pool *pgxpool.Pool) *FragmentRepository {
	return &FragmentRepository{db: pool, tx: NewTxRunner(pool)}
}

// NewFragmentRepositoryWithTx binds the repository to an open transaction.
func NewFragmentRepositoryWithTx(tx dbtx) *FragmentRepository {
	return &FragmentRepository{db: tx}
}

// Append inserts all entries atomically.
func (r *FragmentRepository) Append(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if err := domain.ValidateIndexEntry(&entries[i]); err != nil {
			return err
		}
	}

	if r.tx == nil {
		return r.insert(ctx, entries)
	}
	return r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		return NewFragmentRepositoryWithTx(tx).insert(ctx, entries)
	})
}

func (r *FragmentRepository) insert(ctx context.Context, entries []domain.IndexEntry) error {
	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO index_entries (id, source_id, fragment_index, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID,
			e.SourceID,
			e.FragmentIndex,
			e.Text,
			pgvector.NewVector(e.Embedding),
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// Query returns the k nearest entries by cosine distance. Score is
// 1 - distance, so higher is closer.
func (r *FragmentRepository) Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredEntry, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(embedding) == 0 {
		return nil, errors.New("query embedding is empty")
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, source_id, fragment_index, content, embedding, created_at, embedding <=> $1 AS distance
		 FROM index_entries
		 ORDER BY distance
		 LIMIT $2`,
		pgvector.NewVector(embedding),
		k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredEntry, 0, k)
	for rows.Next() {
		var (
			e        domain.ScoredEntry
			vec      pgvector.Vector
			distance float64
		)
		if err := rows.Scan(&e.ID, &e.SourceID, &e.FragmentIndex, &e.Text, &vec, &e.CreatedAt, &distance); err != nil {
			return nil, err
		}
		e.Embedding = vec.Slice()
		e.Score = float32(1 - distance)
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// CountBySource returns the number of entries stored for sourceID.
func (r *FragmentRepository) CountBySource(ctx context.Context, sourceID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM index_entries WHERE source_id = $1`, sourceID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Count returns the total number of entries.
func (r *FragmentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM index_entries`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
