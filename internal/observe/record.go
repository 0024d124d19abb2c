package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RecordCorrection records one decoded sequence: its latency, the mode used,
// and any beam-exhaustion fallbacks it needed.
func (m *Metrics) RecordCorrection(ctx context.Context, d time.Duration, mode string, exhaustions int) {
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	if m.CorrectionDuration != nil {
		m.CorrectionDuration.Record(ctx, d.Seconds(), attrs)
	}
	if m.SequencesCorrected != nil {
		m.SequencesCorrected.Add(ctx, 1, attrs)
	}
	if exhaustions > 0 && m.BeamExhaustions != nil {
		m.BeamExhaustions.Add(ctx, int64(exhaustions))
	}
}

// RecordEvaluation records one aligned pair and its error rate.
func (m *Metrics) RecordEvaluation(ctx context.Context, rate float64, metricName string) {
	attrs := metric.WithAttributes(attribute.String("metric", metricName))
	if m.PairsEvaluated != nil {
		m.PairsEvaluated.Add(ctx, 1, attrs)
	}
	if m.ErrorRate != nil {
		m.ErrorRate.Record(ctx, rate, attrs)
	}
}
