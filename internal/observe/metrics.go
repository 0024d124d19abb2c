// Package observe provides the observability primitives for corasv:
// OpenTelemetry metric instruments with a Prometheus exporter bridge, so
// long-running batch jobs can be scraped via the standard /metrics endpoint.
//
// A package-level default [Metrics] instance ([Default]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all corasv metrics.
const meterName = "github.com/ocrtools/corasv"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// CorrectionDuration tracks per-sequence decoding latency in seconds.
	// Use with attribute.String("mode", "beamed"|"fast").
	CorrectionDuration metric.Float64Histogram

	// SequencesCorrected counts decoded input sequences.
	SequencesCorrected metric.Int64Counter

	// BeamExhaustions counts beam steps where every candidate was pruned
	// and the fallback re-admitted the best one.
	BeamExhaustions metric.Int64Counter

	// PairsEvaluated counts evaluated reference/hypothesis pairs. Use with
	// attribute.String("metric", ...).
	PairsEvaluated metric.Int64Counter

	// ErrorRate tracks the per-line character error rate distribution.
	ErrorRate metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// per-line decoding latencies.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// rateBuckets defines bucket boundaries for character error rates.
var rateBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CorrectionDuration, err = m.Float64Histogram("corasv.correct.duration",
		metric.WithDescription("Latency of decoding one input sequence."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SequencesCorrected, err = m.Int64Counter("corasv.correct.sequences",
		metric.WithDescription("Number of input sequences decoded."),
	); err != nil {
		return nil, err
	}
	if met.BeamExhaustions, err = m.Int64Counter("corasv.correct.beam_exhaustions",
		metric.WithDescription("Beam steps recovered by the best-candidate fallback."),
	); err != nil {
		return nil, err
	}
	if met.PairsEvaluated, err = m.Int64Counter("corasv.evaluate.pairs",
		metric.WithDescription("Number of reference/hypothesis pairs aligned."),
	); err != nil {
		return nil, err
	}
	if met.ErrorRate, err = m.Float64Histogram("corasv.evaluate.error_rate",
		metric.WithDescription("Per-line character error rate."),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(rateBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide [Metrics] instance backed by the global
// meter provider, creating it on first use.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			m = &Metrics{} // nil instruments, record helpers become no-ops
		}
		defaultMetrics = m
	})
	return defaultMetrics
}
