// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/logging"
)

const serviceName = "authcore"

// app carries state shared by the subcommands of one invocation.
type app struct {
	deps       Deps
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCmd creates the root command for the authcore CLI.
func NewRootCmd(deps Deps) *cobra.Command {
	a := &app{deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "authcore",
		Short: "authcore - account registration, login and session management",
		Long: `authcore manages user accounts and login sessions stored in PostgreSQL.
It applies the schema, administers users and sessions, and runs the
background sweeper that purges expired sessions.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file path (YAML)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(a.newMigrateCmd())
	cmd.AddCommand(a.newUserCmd())
	cmd.AddCommand(a.newSessionsCmd())
	cmd.AddCommand(a.newSweepCmd())

	return cmd
}

// setup loads configuration and builds the logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.Setup(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// backend connects to the database. Callers must call Close on the result.
func (a *app) backend(ctx context.Context, recorder auth.Recorder) (*Backend, error) {
	return a.deps.BackendFactory(ctx, a.cfg, a.logger, recorder)
}
