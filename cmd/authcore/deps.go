// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/postgres"
	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/observability"
	"github.com/holomush/authcore/internal/store"
)

// Deps contains injectable dependencies for the commands.
// Nil fields use their default implementations.
type Deps struct {
	// MigratorFactory opens a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// BackendFactory connects to the database and builds the auth service.
	// Default: newPostgresBackend
	BackendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger, recorder auth.Recorder) (*Backend, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// AuthService wraps the methods the CLI uses from auth.Service.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) error
	Login(ctx context.Context, identifier, password string) (*auth.UserView, error)
	PurgeExpiredSessions(ctx context.Context) (int64, error)
	RevokeSessions(ctx context.Context, userID ulid.ULID) (int64, error)
	DeleteUser(ctx context.Context, userID ulid.ULID) error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Backend is a connected auth service and the handles needed to probe and
// release it.
type Backend struct {
	Service AuthService
	Ready   observability.ReadinessChecker
	Close   func()
}

func (d Deps) withDefaults() Deps {
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if d.BackendFactory == nil {
		d.BackendFactory = newPostgresBackend
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	return d
}

func newPostgresBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger, recorder auth.Recorder) (*Backend, error) {
	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Argon2Params())
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("key", "argon2").Wrap(err)
	}

	pool, err := store.Connect(ctx, cfg.PoolConfig())
	if err != nil {
		return nil, err
	}

	svc, err := auth.NewService(
		postgres.NewUserRepository(pool),
		postgres.NewSessionRepository(pool),
		hasher,
		auth.WithLogger(logger),
		auth.WithRecorder(recorder),
		auth.WithSessionTTL(cfg.Session.TTL),
	)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Backend{
		Service: svc,
		Ready:   pool.Ping,
		Close:   pool.Close,
	}, nil
}
