package domain

import (
	"fmt"
	"strings"
	"time"
)

// DocumentState is the ingestion state of a source document within a run.
type DocumentState string

const (
	DocumentStatePending           DocumentState = "pending"
	DocumentStateProcessing        DocumentState = "processing"
	DocumentStateIndexed           DocumentState = "indexed"
	DocumentStateFailedSkipped     DocumentState = "failed_skipped"
	DocumentStateRateLimitedHalted DocumentState = "rate_limited_halted"
)

// IsTerminal reports whether no further transition happens in the current run.
func (s DocumentState) IsTerminal() bool {
	switch s {
	case DocumentStateIndexed, DocumentStateFailedSkipped, DocumentStateRateLimitedHalted:
		return true
	}
	return false
}

// SourceDocument is a file discovered in the corpus directory. ID is the
// filename and is the checkpoint key.
type SourceDocument struct {
	ID   string
	Path string
	Size int64
}

// TextFragment is a bounded slice of a document's text.
type TextFragment struct {
	Text          string
	SourceID      string
	FragmentIndex int
}

// IndexEntry is a fragment together with its embedding, as stored in the
// vector index.
type IndexEntry struct {
	ID            string
	Embedding     []float32
	Text          string
	SourceID      string
	FragmentIndex int
	CreatedAt     time.Time
}

// ScoredEntry is an IndexEntry returned from a similarity query. Higher Score
// means closer.
type ScoredEntry struct {
	IndexEntry
	Score float32
}

// ValidateIndexEntry validates an IndexEntry before it is appended.
func ValidateIndexEntry(e *IndexEntry) error {
	if e == nil {
		return fmt.Errorf("index entry cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("index entry ID is required")
	}

	if strings.TrimSpace(e.SourceID) == "" {
		return fmt.Errorf("index entry SourceID is required")
	}

	if len(e.Embedding) == 0 {
		return fmt.Errorf("index entry %s has no embedding", e.ID)
	}

	if e.FragmentIndex < 0 {
		return fmt.Errorf("index entry FragmentIndex cannot be negative")
	}

	return nil
}
