// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Administer login sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete every expired session once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.backend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer b.Close()

			n, err := b.Service.PurgeExpiredSessions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired session(s)\n", n)
			return nil
		},
	})

	var userID string
	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Delete every session of one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseUserID(userID)
			if err != nil {
				return err
			}

			b, err := a.backend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer b.Close()

			n, err := b.Service.RevokeSessions(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked %d session(s) for %s\n", n, id)
			return nil
		},
	}
	revoke.Flags().StringVar(&userID, "user-id", "", "user ID (ULID)")
	_ = revoke.MarkFlagRequired("user-id")
	cmd.AddCommand(revoke)

	return cmd
}
