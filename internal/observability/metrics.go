// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/authcore/internal/auth"
)

// OutcomeOK labels a successful operation.
const OutcomeOK = "ok"

// Compile-time interface check.
var _ auth.Recorder = (*Metrics)(nil)

// Metrics holds the authcore Prometheus collectors.
type Metrics struct {
	OperationsTotal *prometheus.CounterVec
	SessionsPurged  prometheus.Counter
	SweepsTotal     *prometheus.CounterVec
	SweepDuration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_operations_total",
				Help: "Auth operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		SessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_sessions_purged_total",
			Help: "Expired sessions removed by the sweeper",
		}),
		SweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_sweeps_total",
				Help: "Session sweeps by result",
			},
			[]string{"result"},
		),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authcore_sweep_duration_seconds",
			Help:    "Time taken by each session sweep",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.OperationsTotal, m.SessionsPurged, m.SweepsTotal, m.SweepDuration)
	return m
}

// RecordOutcome counts one operation. The outcome label is "ok" or the
// lower-cased error kind without its AUTH_ prefix, e.g. "invalid_credentials".
func (m *Metrics) RecordOutcome(operation string, kind auth.ErrorKind) {
	m.OperationsTotal.WithLabelValues(operation, outcomeLabel(kind)).Inc()
}

// RecordSweep counts a sweep and, on success, the sessions it removed.
func (m *Metrics) RecordSweep(purged int64, seconds float64, err error) {
	m.SweepDuration.Observe(seconds)
	if err != nil {
		m.SweepsTotal.WithLabelValues("error").Inc()
		return
	}
	m.SweepsTotal.WithLabelValues(OutcomeOK).Inc()
	m.SessionsPurged.Add(float64(purged))
}

func outcomeLabel(kind auth.ErrorKind) string {
	if kind == "" {
		return OutcomeOK
	}
	return strings.ToLower(strings.TrimPrefix(string(kind), "AUTH_"))
}
