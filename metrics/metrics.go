package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the reconciler's collectors. A nil *Recorder records nothing.
type Recorder struct {
	Outcomes       *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
	Validations    *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "reconcile_outcomes_total",
		Help:      "Reconcile calls by outcome kind.",
	}, []string{"kind"})
	lookup := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "settlement",
		Name:      "lookup_duration_seconds",
		Help:      "Latency of settlement status lookups.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method"})
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "order_validations_total",
		Help:      "Order validations by result (ready, not_ready, aborted).",
	}, []string{"result"})

	reg.MustRegister(outcomes, lookup, validations)
	return &Recorder{Outcomes: outcomes, LookupDuration: lookup, Validations: validations}
}

func (r *Recorder) ObserveOutcome(kind string) {
	if r == nil {
		return
	}
	r.Outcomes.WithLabelValues(kind).Inc()
}

func (r *Recorder) ObserveLookup(method string, d time.Duration) {
	if r == nil {
		return
	}
	r.LookupDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (r *Recorder) ObserveValidation(result string) {
	if r == nil {
		return
	}
	r.Validations.WithLabelValues(result).Inc()
}
