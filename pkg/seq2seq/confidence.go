package seq2seq

import (
	"context"
	"fmt"
)

// ConfidenceContext builds the conditioning vector for one line from the
// recognizer's per-symbol confidences: each confidence is clamped to [0,1]
// and their mean is written into the vector's last entry, so the model sees
// how certain the recognizer was about the line. dim is the model's context
// size; dim 0 (unconditioned models) returns nil. An empty confidence list
// leaves the vector zero.
func ConfidenceContext(confs []float64, dim int) []float32 {
	if dim <= 0 {
		return nil
	}
	vec := make([]float32, dim)
	if len(confs) == 0 {
		return vec
	}
	var sum float64
	for _, c := range confs {
		if c < 0 {
			c = 0
		} else if c > 1 {
			c = 1
		}
		sum += c
	}
	vec[dim-1] = float32(sum / float64(len(confs)))
	return vec
}

// CorrectLinesWithConfidences decodes a batch conditioned on per-symbol
// recognizer confidences. confs may be nil or must have one entry per line;
// each line's confidences are folded into its conditioning vector via
// [ConfidenceContext]. Models trained without a conditioning input decode
// unconditioned.
func (c *Corrector) CorrectLinesWithConfidences(ctx context.Context, lines []string, confs [][]float64, opts Options) ([]*Corrected, error) {
	if confs != nil && len(confs) != len(lines) {
		return nil, fmt.Errorf("%w: %d confidence lists for %d lines",
			ErrInvalidInput, len(confs), len(lines))
	}
	dim := c.model.ContextDim()
	if dim == 0 || confs == nil {
		return c.CorrectLines(ctx, lines, nil, opts)
	}
	contexts := make([][]float32, len(lines))
	for i := range lines {
		contexts[i] = ConfidenceContext(confs[i], dim)
	}
	return c.CorrectLines(ctx, lines, contexts, opts)
}
