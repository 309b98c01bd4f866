package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the service layer reports into.
type Metrics struct {
	ShiftCloses   *prometheus.CounterVec
	ShiftReopens  *prometheus.CounterVec
	CloseDuration prometheus.Histogram
	LedgerEntries *prometheus.CounterVec
}

// New registers all collectors on the given registerer. Pass
// prometheus.NewRegistry() in tests to avoid global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ShiftCloses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fuelledger",
			Name:      "shift_closes_total",
			Help:      "Shift close attempts by outcome.",
		}, []string{"status"}),
		ShiftReopens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fuelledger",
			Name:      "shift_reopens_total",
			Help:      "Shift reopen attempts by outcome.",
		}, []string{"status"}),
		CloseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fuelledger",
			Name:      "shift_close_duration_seconds",
			Help:      "Wall time spent assembling and committing a shift close.",
			Buckets:   prometheus.DefBuckets,
		}),
		LedgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fuelledger",
			Name:      "ledger_entries_total",
			Help:      "Ledger entries committed, by ledger.",
		}, []string{"ledger"}),
	}
	reg.MustRegister(m.ShiftCloses, m.ShiftReopens, m.CloseDuration, m.LedgerEntries)
	return m
}
