package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show checkpointed and pending documents",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}

	cmd.Flags().BoolP("verbose", "v", false, "Also print the number of index entries per indexed document")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.shutdown()

	deps, err := BuildDeps(ctx, rt.cfg, rt.logger, DepsOptions{NoMigrate: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	verbose, _ := cmd.Flags().GetBool("verbose")
	return printStatus(ctx, cmd, deps, verbose)
}

func printStatus(ctx context.Context, cmd *cobra.Command, deps *Deps, verbose bool) error {
	wl, err := deps.Ingestion.Worklist(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Corpus:          %s\n", deps.Config.CorpusDir)
	fmt.Fprintf(out, "Checkpoint:      %s\n", deps.Checkpoint.Path())
	fmt.Fprintf(out, "Total documents: %d\n", len(wl.Documents))
	fmt.Fprintf(out, "Already indexed: %d\n", len(wl.Completed))
	fmt.Fprintf(out, "Remaining:       %d\n", len(wl.Pending))

	if verbose {
		total, err := deps.Index.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Index entries:   %d\n", total)
		for _, id := range wl.Completed {
			n, err := deps.Index.CountBySource(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  indexed  %s (%d entries)\n", id, n)
		}
	}
	for _, doc := range wl.Pending {
		fmt.Fprintf(out, "  pending  %s\n", doc.ID)
	}

	return nil
}
