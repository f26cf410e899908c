package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeForbidden = "forbidden"
	OutcomeConflict  = "conflict"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

var (
	ScheduleTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kintai", Name: "schedule_transitions_total", Help: "Schedule transitions by outcome",
	}, []string{"transition", "outcome"})
	AuthAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kintai", Name: "auth_attempts_total", Help: "Login and token checks by outcome",
	}, []string{"kind", "outcome"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kintai", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(ScheduleTransitions, AuthAttempts, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveTransition(transition, outcome string) {
	ScheduleTransitions.WithLabelValues(transition, outcome).Inc()
}

func ObserveAuth(kind, outcome string) {
	AuthAttempts.WithLabelValues(kind, outcome).Inc()
}
