package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module. Tracks lease
// lifecycle counts and critical path durations.
type Metrics struct {
	Registrations    prometheus.Counter
	Renewals         prometheus.Counter
	RegisterDuration prometheus.Histogram
	RenewDuration    prometheus.Histogram
	QuoteDuration    prometheus.Histogram
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registrar_domains_registered_total",
			Help: "Total number of domain registrations",
		}),
		Renewals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registrar_domains_renewed_total",
			Help: "Total number of domain renewals",
		}),
		RegisterDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "registrar_register_duration_seconds",
			Help:    "Duration of Register operations (allocation critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		RenewDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "registrar_renew_duration_seconds",
			Help:    "Duration of Renew operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		QuoteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "registrar_quote_duration_seconds",
			Help:    "Duration of QuoteRentCost operations (public read path)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}

// ObserveRegister records the duration of a Register operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}

// ObserveRenew records the duration of a Renew operation.
func (m *Metrics) ObserveRenew(start time.Time) {
	m.RenewDuration.Observe(time.Since(start).Seconds())
}

// ObserveQuote records the duration of a QuoteRentCost operation.
func (m *Metrics) ObserveQuote(start time.Time) {
	m.QuoteDuration.Observe(time.Since(start).Seconds())
}
