// AngelaMos | 2026
// metrics.go

// Package metrics holds the Prometheus collectors for authentication and
// request admission. Collectors register on the default registry at init.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookshelf"

// AuthAttemptsTotal counts signup and login outcomes.
// Labels:
//   - operation: "signup" or "login"
//   - outcome: "success", "conflict", "invalid_credentials", "throttled", "invalid_input", "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of signup and login attempts by outcome.",
	},
	[]string{"operation", "outcome"},
)

// GuardRejectionsTotal counts requests stopped by the guard chain.
// Labels:
//   - stage: "rate_limit", "authentication" or "role"
//   - code: the error code written to the client
var GuardRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_rejections_total",
		Help:      "Total number of requests rejected by a guard stage.",
	},
	[]string{"stage", "code"},
)

// PasswordHashDuration observes argon2id hash and verify latency.
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hash and verify operations.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"operation"},
)

func Handler() http.Handler {
	return promhttp.Handler()
}
