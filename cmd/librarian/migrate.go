package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pawsen/library-org/internal/db"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			log := ctx.cliLogger()
			defer func() { _ = log.Sync() }()

			if path := db.LockPath(cfg.Database.Driver, cfg.Database.DSN); path != "" {
				lock, err := db.AcquireLock(path)
				if err != nil {
					return err
				}
				defer func() { _ = lock.Unlock() }()
			}

			database, err := db.Connect(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN, log)
			if err != nil {
				return fmt.Errorf("open database %s: %w", db.RedactDSN(cfg.Database.DSN), err)
			}
			defer database.Close()

			if err := db.RunMigrations(database); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", database.Driver())
			return nil
		},
	}
}
