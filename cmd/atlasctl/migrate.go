package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezkam/atlas/internal/infrastructure/persistence/sqlstore"
)

func migrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or inspect schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{sqlstore.MigrateUp, sqlstore.MigrateDown, sqlstore.MigrateStatus},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := sqlstore.MigrateUp
			if len(args) == 1 {
				direction = args[0]
			}

			ctx := cmd.Context()
			store, err := flags.openStore(ctx, false)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx, direction); err != nil {
				return fmt.Errorf("migrate %s: %w", direction, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", direction)
			return nil
		},
	}
}
