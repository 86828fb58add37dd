package metrics_test

import (
	"testing"
	"time"

	"github.com/davidjwilkins/declarative-settlements/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := metrics.NewRecorder(reg)

	r.ObserveOutcome("settled")
	r.ObserveOutcome("settled")
	r.ObserveOutcome("pending")
	r.ObserveValidation("ready")
	r.ObserveLookup("7", 120*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.Outcomes.WithLabelValues("settled")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Outcomes.WithLabelValues("pending")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Validations.WithLabelValues("ready")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.LookupDuration))
}

func TestRecorder_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewRecorder(reg)
	assert.Panics(t, func() { metrics.NewRecorder(reg) })
}

func TestRecorder_Nil(t *testing.T) {
	var r *metrics.Recorder
	assert.NotPanics(t, func() {
		r.ObserveOutcome("settled")
		r.ObserveLookup("7", time.Second)
		r.ObserveValidation("ready")
	})
}
