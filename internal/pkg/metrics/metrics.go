package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeriveAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polycreds_derive_attempts_total",
		Help: "Credential derivation attempts by outcome",
	}, []string{"outcome"})

	GateRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polycreds_derive_gate_rejects_total",
		Help: "Derivation attempts refused by the derive gate",
	}, []string{"reason"})

	BalanceCandidates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polycreds_balance_candidates_total",
		Help: "Balance query candidates issued, by response class",
	}, []string{"class"})

	SessionBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polycreds_session_builds_total",
		Help: "Exchange sessions built (first use, context switch or re-derive)",
	})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polycreds_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
