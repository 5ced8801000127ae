package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/resumeqa/internal/corpus"
	"github.com/cloo-solutions/resumeqa/internal/domain"
	"github.com/cloo-solutions/resumeqa/internal/telemetry"
)

// DocumentExtractor turns a document path into ordered page texts
type DocumentExtractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex defines the persistence interface for index entries
type VectorIndex interface {
	Append(ctx context.Context, entries []domain.IndexEntry) error
	Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredEntry, error)
	CountBySource(ctx context.Context, sourceID string) (int, error)
}

// CheckpointStore defines the durable record of completed documents
type CheckpointStore interface {
	Completed(ctx context.Context) (map[string]struct{}, error)
	MarkCompleted(ctx context.Context, id string) error
}

// Throttle paces successive documents
type Throttle interface {
	Wait(ctx context.Context) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

var errCheckpointWrite = errors.New("checkpoint write failed")

// IngestionConfig selects the corpus to ingest.
type IngestionConfig struct {
	CorpusDir  string
	Extensions []string
}

// Worklist partitions the corpus into checkpointed and pending documents.
type Worklist struct {
	Documents []domain.SourceDocument
	Completed []string
	Pending   []domain.SourceDocument
}

// DocumentOutcome records what happened to one document during a run.
type DocumentOutcome struct {
	SourceID  string               `json:"source_id"`
	State     domain.DocumentState `json:"state"`
	Fragments int                  `json:"fragments"`
	Error     string               `json:"error,omitempty"`
}

// IngestReport summarises a single ingestion run.
type IngestReport struct {
	Total            int               `json:"total"`
	AlreadyDone      int               `json:"already_done"`
	Pending          int               `json:"pending"`
	Outcomes         []DocumentOutcome `json:"outcomes"`
	FragmentsIndexed int               `json:"fragments_indexed"`
	Halted           bool              `json:"halted"`
	HaltedOn         string            `json:"halted_on,omitempty"`
	StartedAt        time.Time         `json:"started_at"`
	FinishedAt       time.Time         `json:"finished_at"`
}

func (r *IngestReport) record(id string, state domain.DocumentState, fragments int, err error) {
	o := DocumentOutcome{SourceID: id, State: state, Fragments: fragments}
	if err != nil {
		o.Error = err.Error()
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Count returns how many documents ended the run in state.
func (r *IngestReport) Count(state domain.DocumentState) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}

// IngestionService indexes pending corpus documents one at a time.
type IngestionService struct {
	cfg        IngestionConfig
	extractor  DocumentExtractor
	chunker    *Chunker
	embedder   EmbeddingClient
	index      VectorIndex
	checkpoint CheckpointStore
	throttle   Throttle
	uuidGen    UUIDGenerator
	logger     *slog.Logger
	running    atomic.Bool
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	cfg IngestionConfig,
	extractor DocumentExtractor,
	chunker *Chunker,
	embedder EmbeddingClient,
	index VectorIndex,
	checkpoint CheckpointStore,
	throttle Throttle,
	logger *slog.Logger,
) *IngestionService {
	return NewIngestionServiceWithUUIDGen(cfg, extractor, chunker, embedder, index, checkpoint, throttle, logger, &DefaultUUIDGenerator{})
}

// NewIngestionServiceWithUUIDGen creates a new IngestionService with custom UUID generator (for testing)
func NewIngestionServiceWithUUIDGen(
	cfg IngestionConfig,
	extractor DocumentExtractor,
	chunker *Chunker,
	embedder EmbeddingClient,
	index VectorIndex,
	checkpoint CheckpointStore,
	throttle Throttle,
	logger *slog.Logger,
	uuidGen UUIDGenerator,
) *IngestionService {
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".pdf"}
	}
	return &IngestionService{
		cfg:        cfg,
		extractor:  extractor,
		chunker:    chunker,
		embedder:   embedder,
		index:      index,
		checkpoint: checkpoint,
		throttle:   throttle,
		uuidGen:    uuidGen,
		logger:     logger,
	}
}

// Worklist lists the corpus and splits it by checkpoint membership. Pending
// documents keep corpus order.
func (s *IngestionService) Worklist(ctx context.Context) (*Worklist, error) {
	docs, err := corpus.Discover(s.cfg.CorpusDir, s.cfg.Extensions, s.logger)
	if err != nil {
		return nil, err
	}

	done, err := s.checkpoint.Completed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	wl := &Worklist{
		Documents: docs,
		Completed: make([]string, 0, len(done)),
		Pending:   make([]domain.SourceDocument, 0, len(docs)),
	}
	for _, doc := range docs {
		if _, ok := done[doc.ID]; ok {
			wl.Completed = append(wl.Completed, doc.ID)
			continue
		}
		wl.Pending = append(wl.Pending, doc)
	}
	sort.Strings(wl.Completed)

	return wl, nil
}

// Run ingests every pending document. A rate-limited provider halts the run
// and the returned error matches domain.ErrIngestionHalted; the report is
// still returned. Other per-document failures are logged and skipped.
func (s *IngestionService) Run(ctx context.Context) (*IngestReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrIngestionInProgress
	}
	defer s.running.Store(false)

	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Run", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	wl, err := s.Worklist(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	report := &IngestReport{
		Total:       len(wl.Documents),
		AlreadyDone: len(wl.Completed),
		Pending:     len(wl.Pending),
		Outcomes:    make([]DocumentOutcome, 0, len(wl.Pending)),
		StartedAt:   time.Now().UTC(),
	}
	defer func() { report.FinishedAt = time.Now().UTC() }()

	s.logger.Info("ingestion starting",
		slog.Int("total", report.Total),
		slog.Int("already_done", report.AlreadyDone),
		slog.Int("pending", report.Pending))

	if len(wl.Pending) == 0 {
		s.logger.Info("all documents already indexed")
		return report, nil
	}

	for i, doc := range wl.Pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		s.logger.Info("processing document",
			slog.String("source_id", doc.ID),
			slog.Int("position", i+1),
			slog.Int("of", len(wl.Pending)))

		n, err := s.processDocument(ctx, doc)
		if err != nil {
			switch {
			case domain.IsRateLimited(err):
				report.record(doc.ID, domain.DocumentStateRateLimitedHalted, 0, err)
				report.Halted = true
				report.HaltedOn = doc.ID
				s.logger.Warn("rate limit hit, halting ingestion; wait and rerun",
					slog.String("source_id", doc.ID),
					slog.Int("remaining", len(wl.Pending)-i),
					slog.String("error", err.Error()))
				telemetry.AddBreadcrumb(ctx, "ingestion", "halted on rate limit at "+doc.ID)
				return report, domain.NewDomainErrorWithCause(domain.ErrCodeRateLimited, domain.ErrIngestionHalted.Message, err)
			case errors.Is(err, errCheckpointWrite):
				span.SetError(err)
				return report, err
			case ctx.Err() != nil:
				return report, ctx.Err()
			}

			report.record(doc.ID, domain.DocumentStateFailedSkipped, 0, err)
			s.logger.Error("failed to process document, skipping",
				slog.String("source_id", doc.ID),
				slog.String("kind", string(domain.KindOf(err))),
				slog.String("error", err.Error()))
			telemetry.CaptureError(ctx, err)
			continue
		}

		report.record(doc.ID, domain.DocumentStateIndexed, n, nil)
		report.FragmentsIndexed += n
		s.logger.Info("document indexed",
			slog.String("source_id", doc.ID),
			slog.Int("fragments", n))

		if i < len(wl.Pending)-1 {
			if err := s.throttle.Wait(ctx); err != nil {
				return report, err
			}
		}
	}

	s.logger.Info("ingestion finished",
		slog.Int("indexed", report.Count(domain.DocumentStateIndexed)),
		slog.Int("skipped", report.Count(domain.DocumentStateFailedSkipped)),
		slog.Int("fragments", report.FragmentsIndexed))

	return report, nil
}

// processDocument indexes every fragment of doc and then checkpoints it.
func (s *IngestionService) processDocument(ctx context.Context, doc domain.SourceDocument) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.processDocument", telemetry.SpanAttributes{
		SourceID:  doc.ID,
		Operation: "ingest_document",
	})
	defer span.End()

	pages, err := s.extractor.Extract(ctx, doc.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to extract %s: %w", doc.ID, err)
	}

	fragments := s.chunker.Split(pages, doc.ID)
	if len(fragments) == 0 {
		return 0, domain.ErrEmptyDocument
	}
	span.SetData("fragments", len(fragments))

	now := time.Now().UTC()
	entries := make([]domain.IndexEntry, 0, len(fragments))
	for _, f := range fragments {
		embedding, err := s.embedder.GenerateEmbedding(ctx, f.Text)
		if err != nil {
			return 0, fmt.Errorf("failed to embed fragment %d of %s: %w", f.FragmentIndex, doc.ID, err)
		}
		entries = append(entries, domain.IndexEntry{
			ID:            s.uuidGen.NewString(),
			Embedding:     embedding,
			Text:          f.Text,
			SourceID:      f.SourceID,
			FragmentIndex: f.FragmentIndex,
			CreatedAt:     now,
		})
	}

	if err := s.index.Append(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to append fragments of %s: %w", doc.ID, err)
	}

	// The fragments are durable; record completion even if ctx is cancelled now.
	if err := s.checkpoint.MarkCompleted(context.WithoutCancel(ctx), doc.ID); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errCheckpointWrite, doc.ID, err)
	}

	return len(entries), nil
}
