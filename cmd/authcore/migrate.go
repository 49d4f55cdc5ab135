// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func (a *app) newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back or inspect the embedded users and sessions migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: a.withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
			if err := m.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations applied")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all auth data)",
		Args:  cobra.NoArgs,
		RunE: a.withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("Migrations rolled back")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations, or roll back -N",
		Long:  `Apply N migrations. Pass a negative count after -- to roll back, e.g. "migrate steps -- -1".`,
		Args:  cobra.ExactArgs(1),
		RunE: a.withMigrator(func(cmd *cobra.Command, m Migrator, args []string) error {
			n, err := parseVersionArg(args[0], true)
			if err != nil {
				return err
			}
			if err := m.Steps(n); err != nil {
				return err
			}
			cmd.Printf("Applied %d step(s)\n", n)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: a.withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
			st, err := m.Status()
			if err != nil {
				return err
			}
			name := st.Name
			if name == "" {
				name = "none"
			}
			cmd.Printf("version: %d (%s)\n", st.Version, name)
			cmd.Printf("dirty:   %t\n", st.Dirty)
			cmd.Printf("applied: %s\n", joinVersions(st.Applied))
			cmd.Printf("pending: %s\n", joinVersions(st.Pending))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long:  `Record VERSION as the current schema version. Use after repairing a dirty migration by hand.`,
		Args:  cobra.ExactArgs(1),
		RunE: a.withMigrator(func(cmd *cobra.Command, m Migrator, args []string) error {
			v, err := parseVersionArg(args[0], false)
			if err != nil {
				return err
			}
			if err := m.Force(v); err != nil {
				return err
			}
			cmd.Printf("Forced version %d\n", v)
			return nil
		}),
	})

	return cmd
}

func (a *app) withMigrator(run func(*cobra.Command, Migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		m, err := a.deps.MigratorFactory(a.cfg.Database.URL)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		return run(cmd, m, args)
	}
}

// parseVersionArg parses a migration version or step count.
func parseVersionArg(s string, allowNegative bool) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("%q is not an integer", s)
	}
	if n < 0 && !allowNegative {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be non-negative, got %d", n)
	}
	return n, nil
}

func joinVersions(vs []uint) string {
	if len(vs) == 0 {
		return "-"
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, ", ")
}
