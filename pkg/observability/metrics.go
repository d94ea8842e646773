// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the pforte server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// WebBuckets defines histogram buckets for static-file latencies, from
// 1ms up to the multi-second range a slow disk or a PBKDF2 round can hit.
var WebBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pforte_request_duration_seconds",
			Help:    "Request duration",
			Buckets: WebBuckets,
		},
		[]string{"method"},
	)

	// AuthAttemptsTotal counts authentication gate outcomes on
	// protected paths.
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_auth_attempts_total",
			Help: "Authentication attempts on protected paths",
		},
		[]string{"outcome"},
	)

	// AuthLockoutsTotal counts accounts locked after repeated failures,
	// shadow records included.
	AuthLockoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pforte_auth_lockouts_total",
			Help: "Accounts locked after repeated failed logins",
		},
	)

	// ShadowRecords tracks the number of shadow records invented for
	// unknown usernames since process start.
	ShadowRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pforte_auth_shadow_records",
			Help: "Shadow credential records for unknown usernames",
		},
	)

	// AuthzDecisionsTotal counts authorization engine outcomes for
	// manifest-restricted resources.
	AuthzDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_authz_decisions_total",
			Help: "Authorization decisions",
		},
		[]string{"decision"},
	)

	// AccountRequestsTotal counts account-request intake outcomes.
	AccountRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_account_requests_total",
			Help: "Account request intake outcomes",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthAttemptsTotal,
		AuthLockoutsTotal,
		ShadowRecords,
		AuthzDecisionsTotal,
		AccountRequestsTotal,
	)
}
