package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/direct-tree/internal/migrations"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cfg, _, err := e.storage(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
