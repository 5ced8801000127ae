package admin

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/resumeqa/internal/database"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply postgres schema migrations",
		Long:  "Apply pending migrations to DATABASE_URL. The sqlite index migrates itself when opened.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.shutdown()

			if !rt.cfg.UsesPostgres() {
				return errors.New("migrate requires INDEX_BACKEND=postgres")
			}

			source, _ := cmd.Flags().GetString("source")
			return database.RunMigrations(rt.cfg.DatabaseURL, source, rt.logger)
		},
	}

	cmd.Flags().String("source", database.DefaultMigrationsURL, "Migration source URL")

	return cmd
}
