package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/resumeqa/internal/domain"
	"github.com/cloo-solutions/resumeqa/internal/telemetry"
)

// Retriever embeds a query and returns the nearest fragments from the index.
type Retriever struct {
	embedder EmbeddingClient
	index    VectorIndex
}

func NewRetriever(embedder EmbeddingClient, index VectorIndex) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve returns the texts of the top k fragments, most similar first.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	scored, err := r.RetrieveScored(ctx, query, k)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(scored))
	for i, e := range scored {
		texts[i] = e.Text
	}
	return texts, nil
}

// RetrieveScored is Retrieve with scores and source metadata.
func (r *Retriever) RetrieveScored(ctx context.Context, query string, k int) ([]domain.ScoredEntry, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query text is required")
	}
	if k <= 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "k must be positive")
	}

	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		Operation: "retrieve",
	})
	defer span.End()

	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.index.Query(ctx, embedding, k)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	span.SetData("results", len(results))
	return results, nil
}
