// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/observability"
	"github.com/holomush/authcore/internal/store"
)

type fakeService struct {
	mu sync.Mutex

	registerErr error
	loginView   *auth.UserView
	loginErr    error
	purged      int64
	purgeErr    error
	revoked     int64
	deleteErr   error

	registered []string
	passwords  []string
	purgeCalls atomic.Int32
	deletedIDs []ulid.ULID
}

func (f *fakeService) Register(_ context.Context, username, _, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, username)
	f.passwords = append(f.passwords, password)
	return f.registerErr
}

func (f *fakeService) Login(_ context.Context, _, password string) (*auth.UserView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords = append(f.passwords, password)
	return f.loginView, f.loginErr
}

func (f *fakeService) PurgeExpiredSessions(context.Context) (int64, error) {
	f.purgeCalls.Add(1)
	return f.purged, f.purgeErr
}

func (f *fakeService) RevokeSessions(context.Context, ulid.ULID) (int64, error) {
	return f.revoked, nil
}

func (f *fakeService) DeleteUser(_ context.Context, id ulid.ULID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedIDs = append(f.deletedIDs, id)
	return f.deleteErr
}

type fakeMigrator struct {
	status   *store.Status
	upErr    error
	forced   []int
	steps    []int
	upCalled bool
	closed   bool
}

func (f *fakeMigrator) Up() error {
	f.upCalled = true
	return f.upErr
}
func (f *fakeMigrator) Down() error { return nil }
func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}
func (f *fakeMigrator) Force(v int) error {
	f.forced = append(f.forced, v)
	return nil
}
func (f *fakeMigrator) Status() (*store.Status, error) { return f.status, nil }
func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

type fakeObservabilityServer struct {
	metrics *observability.Metrics
	errCh   chan error
	ready   observability.ReadinessChecker
	started atomic.Bool
	stopped atomic.Bool
}

func newFakeObservabilityServer() *fakeObservabilityServer {
	return &fakeObservabilityServer{
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
		errCh:   make(chan error, 1),
	}
}

func (f *fakeObservabilityServer) Start() (<-chan error, error) {
	f.started.Store(true)
	return f.errCh, nil
}

func (f *fakeObservabilityServer) Stop(context.Context) error {
	f.stopped.Store(true)
	return nil
}

func (f *fakeObservabilityServer) Addr() string                   { return "127.0.0.1:0" }
func (f *fakeObservabilityServer) Metrics() *observability.Metrics { return f.metrics }

type harness struct {
	svc      *fakeService
	migrator *fakeMigrator
	closed   atomic.Int32
	recorder auth.Recorder
	cfg      *config.Config
}

func newHarness() *harness {
	return &harness{
		svc:      &fakeService{},
		migrator: &fakeMigrator{status: &store.Status{}},
	}
}

func (h *harness) deps() Deps {
	return Deps{
		MigratorFactory: func(string) (Migrator, error) { return h.migrator, nil },
		BackendFactory: func(_ context.Context, cfg *config.Config, _ *slog.Logger, rec auth.Recorder) (*Backend, error) {
			h.cfg = cfg
			h.recorder = rec
			return &Backend{
				Service: h.svc,
				Ready:   func(context.Context) error { return nil },
				Close:   func() { h.closed.Add(1) },
			}, nil
		},
	}
}

// run executes the CLI with a database URL so configuration validates.
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvDatabaseURL, "postgres://fake/authcore")

	cmd := NewRootCmd(h.deps())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.URL = "postgres://fake/authcore"
	require.NoError(t, cfg.Validate())
	return &cfg
}
