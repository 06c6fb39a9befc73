package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MutationsCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "drawhub", Name: "diagram_mutations_committed_total", Help: "Number of diagram saves that committed a new version."},
	)
	MutationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "drawhub", Name: "diagram_mutation_conflicts_total", Help: "Number of diagram saves rejected by a version mismatch."},
	)
	MutationLockTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "drawhub", Name: "diagram_mutation_lock_timeouts_total", Help: "Number of diagram saves that timed out waiting for the per-diagram lock."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "drawhub", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "drawhub", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(MutationsCommitted)
	reg.MustRegister(MutationConflicts)
	reg.MustRegister(MutationLockTimeouts)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
