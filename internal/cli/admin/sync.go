package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/resumeqa/internal/storage"
)

// SyncCorpusCmd returns the sync-corpus command
func SyncCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync-corpus",
		Short: "Download new resumes from object storage",
		Long: `Copy objects under S3_PREFIX into CORPUS_DIR.

Only objects directly under the prefix with an accepted extension are copied.
Files that already exist locally are left untouched.`,
		Args: cobra.NoArgs,
		RunE: runSyncCorpus,
	}

	cmd.Flags().Bool("json", false, "Print the sync report as JSON")

	return cmd
}

func runSyncCorpus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.shutdown()
	cfg := rt.cfg

	if !cfg.HasS3() {
		return errors.New("object storage not configured: S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required")
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}

	syncer := storage.NewCorpusSyncer(client, cfg.CorpusDir, cfg.S3Prefix, cfg.CorpusExtensions, rt.logger)
	report, err := syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	fmt.Fprintf(out, "Downloaded: %d\n", len(report.Downloaded))
	fmt.Fprintf(out, "Existing:   %d\n", len(report.Existing))
	fmt.Fprintf(out, "Ignored:    %d\n", len(report.Ignored))
	for _, name := range report.Downloaded {
		fmt.Fprintf(out, "  + %s\n", name)
	}
	return nil
}
