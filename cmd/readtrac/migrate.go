package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"readtrac/internal/database"
	"readtrac/internal/logging"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	for _, c := range []struct{ name, short string }{
		{"up", "Apply all pending migrations"},
		{"down", "Roll back the most recent migration"},
		{"status", "Show applied and pending migrations"},
		{"version", "Print the current schema version"},
	} {
		command := c.name
		cmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := database.Open(cmd.Context(), opts.cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()

				if err := db.Migrate(cmd.Context(), command); err != nil {
					return fmt.Errorf("migrate %s: %w", command, err)
				}
				logging.Info().Str("command", command).Str("backend", string(db.Backend)).Msg("migration finished")
				return nil
			},
		})
	}
	return cmd
}
