// Package metrics records scenario timings in a Prometheus registry and
// exports them in the node exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weiihann/featherweight/harness"
)

const namespace = "featherweight"

// Recorder collects per-scenario metrics. It implements
// scenario.Observer.
type Recorder struct {
	registry  *prometheus.Registry
	roundTrip *prometheus.HistogramVec
	failures  *prometheus.CounterVec
	documents *prometheus.GaugeVec
	composite *prometheus.GaugeVec
}

// NewRecorder creates a Recorder backed by its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		roundTrip: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_trip_seconds",
			Help:      "Wall-clock seconds to encode and decode every document of a dataset once.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		}, []string{"scenario", "codec"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenario_failures_total",
			Help:      "Scenarios that ended with an error.",
		}, []string{"scenario"}),
		documents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_documents",
			Help:      "Documents loaded for a scenario.",
		}, []string{"scenario"}),
		composite: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "composite_score_seconds",
			Help:      "Mean round-trip seconds across repetitions.",
		}, []string{"scenario", "codec"}),
	}

	r.registry.MustRegister(r.roundTrip, r.failures, r.documents, r.composite)

	return r
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records one scenario result.
func (r *Recorder) Observe(res harness.Result) {
	if res.Failed() {
		r.failures.WithLabelValues(res.Scenario).Inc()
	}

	if res.Documents > 0 {
		r.documents.WithLabelValues(res.Scenario).Set(float64(res.Documents))
	}

	for _, s := range res.Scores {
		r.roundTrip.WithLabelValues(res.Scenario, res.Codec).Observe(s)
	}

	if res.Summary != nil {
		r.composite.WithLabelValues(res.Scenario, res.Codec).Set(res.Summary.Composite)
	}
}

// WriteTextfile writes every metric to path, replacing it atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}

	return nil
}
