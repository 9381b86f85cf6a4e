package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "villaalcielo",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "villaalcielo",
			Name:      "reservations_total",
			Help:      "Reservation lifecycle transitions by resulting status.",
		},
		[]string{"status"},
	)

	sweeperRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "villaalcielo",
			Name:      "sweeper_runs_total",
			Help:      "Completed expiry sweeper passes.",
		},
	)

	sweeperExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "villaalcielo",
			Name:      "sweeper_expired_total",
			Help:      "Reservations expired by the sweeper.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservations, sweeperRuns, sweeperExpired)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncReservation records a lifecycle transition into the given status.
func IncReservation(status string) {
	reservations.WithLabelValues(status).Inc()
}

// SweepCompleted records one sweeper pass that expired n reservations.
func SweepCompleted(n int) {
	sweeperRuns.Inc()
	sweeperExpired.Add(float64(n))
}
