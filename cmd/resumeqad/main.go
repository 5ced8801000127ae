package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/resumeqa/internal/cli"
	"github.com/cloo-solutions/resumeqa/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "resumeqad",
		Short: "Resume question answering daemon",
		Long: `resumeqad indexes a directory of resumes into a vector index and serves
answers to recruiter questions grounded in those resumes.

Configuration is read from RESUMEQA_* environment variables and an optional .env file.`,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.StatusCmd())
	rootCmd.AddCommand(admin.SyncCorpusCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
