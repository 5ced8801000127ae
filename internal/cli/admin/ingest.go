package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/resumeqa/internal/domain"
	"github.com/cloo-solutions/resumeqa/internal/service"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index pending corpus documents",
		Long: `Index every corpus document not yet recorded in the checkpoint file.

Documents are processed one at a time with a cooldown between them. On a
provider rate limit the run stops; rerun the command later to resume.`,
		Args: cobra.NoArgs,
		RunE: runIngest,
	}

	cmd.Flags().Bool("json", false, "Print the run report as JSON")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.shutdown()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	deps, err := BuildDeps(ctx, rt.cfg, rt.logger, DepsOptions{NoMigrate: noMigrate, RequireProvider: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	report, runErr := deps.Ingestion.Run(ctx)
	if report != nil {
		asJSON, _ := cmd.Flags().GetBool("json")
		if err := printReport(cmd.OutOrStdout(), report, asJSON); err != nil {
			return err
		}
	}

	if domain.IsRateLimited(runErr) && report != nil {
		return fmt.Errorf("rate limit reached at %s; wait a few minutes and run ingest again: %w", report.HaltedOn, runErr)
	}
	return runErr
}

func printReport(w io.Writer, report *service.IngestReport, asJSON bool) error {
	if asJSON {
		output, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(output))
		return nil
	}

	fmt.Fprintf(w, "Total documents: %d\n", report.Total)
	fmt.Fprintf(w, "Already done:    %d\n", report.AlreadyDone)
	fmt.Fprintf(w, "Remaining:       %d\n", report.Pending)
	if report.Pending == 0 {
		fmt.Fprintln(w, "All documents are already indexed.")
		return nil
	}

	for _, o := range report.Outcomes {
		switch o.State {
		case domain.DocumentStateIndexed:
			fmt.Fprintf(w, "  indexed  %s (%d fragments)\n", o.SourceID, o.Fragments)
		case domain.DocumentStateFailedSkipped:
			fmt.Fprintf(w, "  skipped  %s: %s\n", o.SourceID, o.Error)
		case domain.DocumentStateRateLimitedHalted:
			fmt.Fprintf(w, "  halted   %s: %s\n", o.SourceID, o.Error)
		}
	}
	fmt.Fprintf(w, "Fragments indexed this run: %d\n", report.FragmentsIndexed)
	return nil
}
