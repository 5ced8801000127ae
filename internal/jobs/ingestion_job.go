package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloo-solutions/resumeqa/internal/domain"
	"github.com/cloo-solutions/resumeqa/internal/service"
	"github.com/cloo-solutions/resumeqa/internal/telemetry"
)

// IngestionRunner runs one ingestion pass over the corpus
type IngestionRunner interface {
	Run(ctx context.Context) (*service.IngestReport, error)
}

// IngestionJob re-runs ingestion on every worker tick. A rate-limit halt is
// not an error here: the next tick resumes from the checkpoint.
type IngestionJob struct {
	runner IngestionRunner
	logger *slog.Logger
}

// NewIngestionJob creates a new IngestionJob instance
func NewIngestionJob(runner IngestionRunner, logger *slog.Logger) *IngestionJob {
	return &IngestionJob{
		runner: runner,
		logger: logger,
	}
}

// ProcessJobs implements the JobProcessor interface
func (j *IngestionJob) ProcessJobs(ctx context.Context) error {
	ctx, tx := telemetry.StartTransaction(ctx, "jobs.ingestion", "job")
	defer tx.End()

	report, err := j.runner.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		j.logger.Info("ingestion interrupted by shutdown, will resume from checkpoint")
		return nil
	case errors.Is(err, domain.ErrIngestionInProgress):
		j.logger.Info("ingestion already running, skipping tick")
		return nil
	case domain.IsRateLimited(err):
		haltedOn := ""
		if report != nil {
			haltedOn = report.HaltedOn
		}
		j.logger.Warn("ingestion halted by rate limit, will resume on next tick",
			slog.String("halted_on", haltedOn))
		return nil
	case err != nil:
		tx.SetError(err)
		return fmt.Errorf("ingestion run failed: %w", err)
	}

	if report.Pending > 0 {
		j.logger.Info("scheduled ingestion finished",
			slog.Int("indexed", report.Count(domain.DocumentStateIndexed)),
			slog.Int("skipped", report.Count(domain.DocumentStateFailedSkipped)),
			slog.Int("fragments", report.FragmentsIndexed))
	}
	return nil
}
