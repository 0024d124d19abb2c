package model

import "math"

// attend scores a fixed-size window of encoder states around the current
// center against the decoder hidden state and returns the weighted context
// vector, the window start, the normalized weights, and the advanced center.
//
// The center is monotonic: it moves to the attention's expected position
// within the window but never backwards, reflecting the left-to-right
// correspondence between recognized and corrected text. Cost per step is
// O(window), independent of the input length.
func (m *Model) attend(enc *Encoded, st *DecoderState) (ctx []float32, lo int, weights []float32, center float64) {
	n := enc.Len()
	half := m.Window / 2
	c := int(math.Round(st.Center))
	lo = c - half
	hi := c + (m.Window - half) // exclusive
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo >= hi {
		lo = n - 1
		hi = n
	}

	query := make([]float32, m.HiddenDim)
	matVecAdd(query, m.AttnQuery, st.H, m.HiddenDim, m.HiddenDim)

	weights = make([]float32, hi-lo)
	for p := lo; p < hi; p++ {
		weights[p-lo] = dot(enc.States[p], query)
	}
	softmaxInPlace(weights)

	ctx = make([]float32, m.HiddenDim)
	var expected float64
	for p := lo; p < hi; p++ {
		w := weights[p-lo]
		expected += float64(w) * float64(p)
		state := enc.States[p]
		for j := range ctx {
			ctx[j] += w * state[j]
		}
	}

	center = st.Center
	if expected > center {
		center = expected
	}
	return ctx, lo, weights, center
}
