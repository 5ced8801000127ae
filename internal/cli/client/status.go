package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// IngestStatus is the data returned by GET /ingest/status.
type IngestStatus struct {
	Total     int      `json:"total"`
	Completed []string `json:"completed"`
	Pending   []string `json:"pending"`
}

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show ingestion progress",
		Long:  "Shows how many corpus documents are indexed and which are still pending.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var resp struct {
				Data IngestStatus `json:"data"`
			}
			if err := api.Get(cmd.Context(), "/ingest/status", &resp); err != nil {
				return fmt.Errorf("status failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				output, _ := json.MarshalIndent(resp.Data, "", "  ")
				fmt.Fprintln(out, string(output))
				return nil
			}

			fmt.Fprintf(out, "Total documents: %d\n", resp.Data.Total)
			fmt.Fprintf(out, "Already indexed: %d\n", len(resp.Data.Completed))
			fmt.Fprintf(out, "Remaining:       %d\n", len(resp.Data.Pending))
			for _, id := range resp.Data.Pending {
				fmt.Fprintf(out, "  - %s\n", id)
			}
			return nil
		},
	}

	return cmd
}
