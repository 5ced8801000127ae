package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    DocumentState
		terminal bool
	}{
		{DocumentStatePending, false},
		{DocumentStateProcessing, false},
		{DocumentStateIndexed, true},
		{DocumentStateFailedSkipped, true},
		{DocumentStateRateLimitedHalted, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
		})
	}
}

func TestValidateIndexEntry(t *testing.T) {
	valid := func() *IndexEntry {
		return &IndexEntry{
			ID:            "entry-1",
			Embedding:     []float32{0.1, 0.2},
			Text:          "Python, AWS, 5 years",
			SourceID:      "alice.pdf",
			FragmentIndex: 0,
		}
	}

	tests := []struct {
		name    string
		mutate  func(e *IndexEntry) *IndexEntry
		wantErr bool
		errMsg  string
	}{
		{"valid", func(e *IndexEntry) *IndexEntry { return e }, false, ""},
		{"nil", func(e *IndexEntry) *IndexEntry { return nil }, true, "cannot be nil"},
		{"missing id", func(e *IndexEntry) *IndexEntry { e.ID = ""; return e }, true, "ID is required"},
		{"missing source", func(e *IndexEntry) *IndexEntry { e.SourceID = "  "; return e }, true, "SourceID is required"},
		{"no embedding", func(e *IndexEntry) *IndexEntry { e.Embedding = nil; return e }, true, "no embedding"},
		{"negative index", func(e *IndexEntry) *IndexEntry { e.FragmentIndex = -1; return e }, true, "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIndexEntry(tt.mutate(valid()))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
