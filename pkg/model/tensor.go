package model

import "math"

// matVecAdd computes out += w·x for a row-major weight matrix w of shape
// rows×cols. out must have length rows, x length cols.
func matVecAdd(out, w, x []float32, rows, cols int) {
	for r := 0; r < rows; r++ {
		row := w[r*cols : (r+1)*cols]
		var sum float32
		for c, xv := range x {
			sum += row[c] * xv
		}
		out[r] += sum
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i, av := range a {
		sum += av * b[i]
	}
	return sum
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

func tanhf(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

// softmaxInPlace turns logits into a probability distribution using the
// numerically stable shifted form.
func softmaxInPlace(v []float32) {
	if len(v) == 0 {
		return
	}
	max := v[0]
	for _, x := range v[1:] {
		if x > max {
			max = x
		}
	}
	var sum float64
	for i, x := range v {
		e := math.Exp(float64(x - max))
		v[i] = float32(e)
		sum += e
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / sum)
	for i := range v {
		v[i] *= inv
	}
}

// argmax returns the index of the largest value, -1 for an empty slice.
func argmax(v []float32) int {
	if len(v) == 0 {
		return -1
	}
	best := 0
	for i, x := range v[1:] {
		if x > v[best] {
			best = i + 1
		}
	}
	return best
}
