package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezkam/atlas/internal/application/catalog"
)

func seedCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [fixture.yaml]",
		Short: "Upsert task types, cycle templates and users from YAML",
		Long: `Upsert reference data from a YAML fixture. Without an argument the
built-in task types and cycle templates are loaded. Use "-" to read stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = catalog.DefaultFixture()
			if len(args) == 1 {
				switch args[0] {
				case "-":
					src = cmd.InOrStdin()
				default:
					f, err := os.Open(args[0])
					if err != nil {
						return err
					}
					defer f.Close()
					src = f
				}
			}

			ctx := cmd.Context()
			store, err := flags.openStore(ctx, true)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := catalog.NewService(store).Seed(ctx, src)
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d task types, %d cycle templates, %d users\n",
				summary.TaskTypes, summary.CycleTemplates, summary.Users)
			return nil
		},
	}
}
