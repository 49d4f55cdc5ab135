// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/auth"
)

func (a *app) newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer user accounts",
	}
	cmd.AddCommand(a.newUserAddCmd(), a.newUserVerifyCmd(), a.newUserDeleteCmd())
	return cmd
}

func (a *app) newUserAddCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new user",
		Long:  `Register a new user. The password is read from stdin when --password is not given.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := passwordFrom(cmd, password)
			if err != nil {
				return err
			}

			b, err := a.backend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.Service.Register(cmd.Context(), username, email, pw); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username (3-50 characters: letters, digits, _ . -)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin if omitted)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) newUserVerifyCmd() *cobra.Command {
	var identifier, password string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a username or email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := passwordFrom(cmd, password)
			if err != nil {
				return err
			}

			b, err := a.backend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer b.Close()

			view, err := b.Service.Login(cmd.Context(), identifier, pw)
			if err != nil {
				return userError(err)
			}
			printUser(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().StringVar(&identifier, "identifier", "", "username or email")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin if omitted)")
	_ = cmd.MarkFlagRequired("identifier")
	return cmd
}

func (a *app) newUserDeleteCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a user and all of their sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := parseUserID(id)
			if err != nil {
				return err
			}

			b, err := a.backend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.Service.DeleteUser(cmd.Context(), userID); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", userID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user ID (ULID)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// passwordFrom returns flagValue, or the first line of stdin when it is empty.
func passwordFrom(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseUserID(s string) (ulid.ULID, error) {
	id, err := ulid.Parse(strings.TrimSpace(s))
	if err != nil {
		return ulid.ULID{}, oops.Code("INVALID_USER_ID").With("input", s).Errorf("%q is not a valid user ID", s)
	}
	return id, nil
}

// userError reduces a Service error to its public message for rejected
// input. Internal failures keep their detail for the operator.
func userError(err error) error {
	kind := auth.KindOf(err)
	if kind == "" || kind.Internal() {
		return err
	}
	return oops.Code(string(kind)).Errorf("%s", kind.Message())
}

func printUser(w io.Writer, v *auth.UserView) {
	fmt.Fprintf(w, "id:       %s\n", v.ID)
	fmt.Fprintf(w, "username: %s\n", v.Username)
	fmt.Fprintf(w, "email:    %s\n", v.Email)
	fmt.Fprintf(w, "created:  %s\n", v.CreatedAt.UTC().Format(time.RFC3339))
}
