// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store owns the PostgreSQL schema and connection pool.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Default pool settings.
const (
	DefaultConnectRetries = 5
	DefaultRetryBase      = 250 * time.Millisecond
)

// PoolConfig controls how Connect dials the database.
type PoolConfig struct {
	URL            string
	MaxConns       int32
	ConnectRetries uint64
	RetryBase      time.Duration
}

// Connect opens a pool and pings it, retrying with exponential backoff
// until the database answers or the retries are exhausted.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	base := cfg.RetryBase
	if base <= 0 {
		base = DefaultRetryBase
	}
	backoff := retry.WithMaxRetries(cfg.ConnectRetries, retry.NewExponential(base))

	attempts := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_UNAVAILABLE").With("attempts", attempts).Wrap(err)
	}
	return pool, nil
}
