package main

import (
	"github.com/spf13/cobra"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/application/project"
	"github.com/rezkam/atlas/internal/domain"
)

func metricsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics <project-id>",
		Short: "Show flow efficiency and backlog health for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := flags.openStore(ctx, true)
			if err != nil {
				return err
			}
			defer store.Close()

			admin := access.User{ID: domain.AdministratorUserID}
			svc := project.NewService(store, project.Config{})

			p, err := svc.Get(ctx, admin, args[0])
			if err != nil {
				return err
			}
			result, err := svc.FlowMetrics(ctx, admin, p.ID)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write([]byte(renderMetrics(p, result) + "\n"))
			return err
		},
	}
}
