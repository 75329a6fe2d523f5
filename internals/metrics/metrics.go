package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AuthRequestsTotal counts auth operations by name and outcome
	// (ok, rejected, error).
	AuthRequestsTotal *prometheus.CounterVec

	// EmailSendTotal counts best-effort email deliveries by kind and outcome.
	EmailSendTotal *prometheus.CounterVec

	initOnce sync.Once
)

// InitMetrics registers the collectors. Safe to call more than once; tests
// rely on that.
func InitMetrics() {
	initOnce.Do(func() {
		AuthRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Auth operations by operation and outcome",
		}, []string{"operation", "outcome"})

		EmailSendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "email_send_total",
			Help: "Outbound transactional emails by kind and outcome",
		}, []string{"kind", "outcome"})

		prometheus.MustRegister(AuthRequestsTotal, EmailSendTotal)
	})
}

// Observe records one auth operation outcome.
func Observe(operation string, outcome string) {
	if AuthRequestsTotal != nil {
		AuthRequestsTotal.WithLabelValues(operation, outcome).Inc()
	}
}

// ObserveEmail records one email delivery outcome.
func ObserveEmail(kind string, ok bool) {
	if EmailSendTotal == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	EmailSendTotal.WithLabelValues(kind, outcome).Inc()
}
