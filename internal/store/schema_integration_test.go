// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/authcore/internal/store"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

var _ = Describe("Migrator", func() {
	var migrator *store.Migrator

	BeforeEach(func() {
		var err error
		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			Expect(migrator.Down()).To(Succeed())
			Expect(migrator.Close()).To(Succeed())
		})
	})

	It("starts at version zero", func() {
		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Version).To(BeZero())
		Expect(st.Pending).To(Equal([]uint{1, 2}))
	})

	It("applies, steps back and reapplies", func() {
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Up()).To(Succeed())

		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Version).To(Equal(uint(2)))
		Expect(st.Name).To(Equal("000002_sessions"))
		Expect(st.Dirty).To(BeFalse())
		Expect(st.Pending).To(BeEmpty())

		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))

		Expect(migrator.Steps(1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
	})
})

var _ = Describe("Schema", func() {
	var (
		ctx  context.Context
		pool *pgxpool.Pool
	)

	BeforeEach(func() {
		ctx = context.Background()

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())

		pool, err = store.Connect(ctx, store.PoolConfig{URL: connStr, ConnectRetries: 3})
		Expect(err).NotTo(HaveOccurred())

		DeferCleanup(func() {
			pool.Close()
			Expect(migrator.Down()).To(Succeed())
			Expect(migrator.Close()).To(Succeed())
		})
	})

	insertUser := func(id, username, email string) error {
		_, err := pool.Exec(ctx,
			`INSERT INTO users (id, username, email, password_hash) VALUES ($1, $2, $3, 'x')`,
			id, username, email)
		return err
	}

	It("rejects duplicate usernames and emails", func() {
		Expect(insertUser("01HZ0000000000000000000001", "alice", "alice@x.com")).To(Succeed())

		err := insertUser("01HZ0000000000000000000002", "alice", "other@x.com")
		Expect(pgCode(err)).To(Equal(pgerrcode.UniqueViolation))

		err = insertUser("01HZ0000000000000000000003", "other", "alice@x.com")
		Expect(pgCode(err)).To(Equal(pgerrcode.UniqueViolation))
	})

	It("rejects usernames outside the length bounds", func() {
		err := insertUser("01HZ0000000000000000000004", "ab", "ab@x.com")
		Expect(pgCode(err)).To(Equal(pgerrcode.CheckViolation))
	})

	It("deletes a user's sessions with the user", func() {
		Expect(insertUser("01HZ0000000000000000000005", "bob", "bob@x.com")).To(Succeed())
		_, err := pool.Exec(ctx,
			`INSERT INTO sessions (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`,
			"hash-1", "01HZ0000000000000000000005", time.Now().Add(time.Hour))
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, "01HZ0000000000000000000005")
		Expect(err).NotTo(HaveOccurred())

		var count int
		Expect(pool.QueryRow(ctx, `SELECT count(*) FROM sessions`).Scan(&count)).To(Succeed())
		Expect(count).To(BeZero())
	})

	It("rejects sessions for unknown users", func() {
		_, err := pool.Exec(ctx,
			`INSERT INTO sessions (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`,
			"hash-2", "01HZ0000000000000000000099", time.Now().Add(time.Hour))
		Expect(pgCode(err)).To(Equal(pgerrcode.ForeignKeyViolation))
	})
})
