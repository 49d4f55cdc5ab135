// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/config"
)

const shutdownTimeout = 5 * time.Second

// sweepRecorder receives the result of each sweep.
type sweepRecorder interface {
	RecordSweep(purged int64, seconds float64, err error)
}

type nopSweepRecorder struct{}

func (nopSweepRecorder) RecordSweep(int64, float64, error) {}

func (a *app) newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Purge expired sessions on an interval",
		Long: `Run until interrupted, deleting expired sessions every --interval.
Metrics and health probes are served on --metrics-addr; an empty address
disables the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runSweep(ctx)
		},
	}
	d := config.Default()
	cmd.Flags().Duration("interval", d.Sweep.Interval, "time between sweeps")
	cmd.Flags().String("metrics-addr", d.Metrics.Addr, "metrics and health listen address")
	return cmd
}

// runSweep sweeps until ctx is cancelled or the metrics server fails.
func (a *app) runSweep(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		backend  *Backend
		srv      ObservabilityServer
		recorder auth.Recorder
		sweeps   sweepRecorder = nopSweepRecorder{}
	)

	if addr := a.cfg.Metrics.Addr; addr != "" {
		// backend is assigned before Start, so probes never see it nil.
		ready := func(ctx context.Context) error {
			if backend.Ready == nil {
				return nil
			}
			return backend.Ready(ctx)
		}
		srv = a.deps.ObservabilityServerFactory(addr, ready, a.logger)
		if m := srv.Metrics(); m != nil {
			recorder = m
			sweeps = m
		}
	}

	backend, err := a.backend(ctx, recorder)
	if err != nil {
		return err
	}
	defer backend.Close()

	var srvErr <-chan error
	if srv != nil {
		srvErr, err = srv.Start()
		if err != nil {
			return err
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if err := srv.Stop(stopCtx); err != nil {
				a.logger.Warn("observability server shutdown failed", "error", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sweepLoop(ctx, backend.Service.PurgeExpiredSessions, a.cfg.Sweep.Interval, sweeps, a.logger)
	}()

	a.logger.Info("session sweeper started", "interval", a.cfg.Sweep.Interval.String())

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-srvErr:
		if ok && err != nil {
			runErr = err
		}
	}
	cancel()
	<-done

	a.logger.Info("session sweeper stopped")
	return runErr
}

// sweepLoop purges once immediately and then on every tick until ctx ends.
func sweepLoop(ctx context.Context, purge func(context.Context) (int64, error), interval time.Duration, rec sweepRecorder, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		n, err := purge(ctx)
		rec.RecordSweep(n, time.Since(start).Seconds(), err)
		switch {
		case err != nil && ctx.Err() == nil:
			logger.Warn("session sweep failed", "error", err)
		case n > 0:
			logger.Info("expired sessions purged", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
		}
	}
}
