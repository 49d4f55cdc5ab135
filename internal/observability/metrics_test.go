// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/observability"
)

func TestMetrics_RecordOutcome(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())

	m.RecordOutcome(auth.OpRegister, "")
	m.RecordOutcome(auth.OpRegister, "")
	m.RecordOutcome(auth.OpRegister, auth.KindDuplicateCredential)
	m.RecordOutcome(auth.OpLogin, auth.KindLoginFailed)

	assert.InDelta(t, 2, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("register", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("register", "duplicate_credential")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("login", "login_failed")), 0)
}

func TestMetrics_RecordSweep(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())

	m.RecordSweep(4, 0.2, nil)
	m.RecordSweep(9, 0.1, errors.New("db down"))

	assert.InDelta(t, 4, testutil.ToFloat64(m.SessionsPurged), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SweepsTotal.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SweepsTotal.WithLabelValues("error")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.SweepDuration))
}

func TestMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)
	assert.Panics(t, func() { observability.NewMetrics(reg) })
}
