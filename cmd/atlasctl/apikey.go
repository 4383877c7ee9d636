package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezkam/atlas/internal/application/auth"
)

func apikeyCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	cmd.AddCommand(apikeyCreateCmd(flags))
	return cmd
}

func apikeyCreateCmd(flags *globalFlags) *cobra.Command {
	var (
		userID string
		name   string
		days   int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint an API key for an existing user",
		Long:  "Mint an API key for an existing user. The key is printed once and cannot be recovered.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 0 {
				return errors.New("--days must not be negative")
			}

			ctx := cmd.Context()
			store, err := flags.openStore(ctx, true)
			if err != nil {
				return err
			}
			defer store.Close()

			var expiresAt *time.Time
			if days > 0 {
				expiry := time.Now().UTC().AddDate(0, 0, days)
				expiresAt = &expiry
			}

			key, err := auth.IssueAPIKey(ctx, store, auth.IssueInput{
				UserID:    userID,
				Name:      name,
				ExpiresAt: expiresAt,
			})
			if err != nil {
				return fmt.Errorf("failed to create API key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, key)
			if expiresAt != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.DateOnly))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "id of the user the key acts as (required)")
	cmd.Flags().StringVar(&name, "name", "", "label for the key (required)")
	cmd.Flags().IntVar(&days, "days", 0, "days until expiry, 0 never expires")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
