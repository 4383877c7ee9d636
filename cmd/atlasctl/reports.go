package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezkam/atlas/internal/config"
	"github.com/rezkam/atlas/internal/infrastructure/archive"
	"github.com/rezkam/atlas/internal/infrastructure/archive/backend"
)

var errNoArchive = errors.New("no report archive configured; set ATLAS_ARCHIVE_TYPE to fs or gcs")

func reportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Browse archived cycle reports",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List archived reports, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withArchive(cmd, func(a archive.Archive) error {
					reports, err := a.List(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderReportList(reports))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show <cycle-id>",
			Short: "Show one archived report",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withArchive(cmd, func(a archive.Archive) error {
					report, err := a.Get(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
					return nil
				})
			},
		},
	)
	return cmd
}

func withArchive(cmd *cobra.Command, fn func(archive.Archive) error) error {
	cfg, err := config.LoadToolConfig()
	if err != nil {
		return err
	}
	a, closeArchive, err := backend.Open(cmd.Context(), cfg.Archive)
	if err != nil {
		return err
	}
	defer closeArchive()
	if a == nil {
		return errNoArchive
	}
	return fn(a)
}
