package model

// LSTM holds the weights of one long short-term memory layer. Gate weight
// matrices are row-major hidden×input (W*) and hidden×hidden (U*), biases
// have hidden entries. The layer itself is stateless; callers pass the
// hidden/cell vectors explicitly so recurrent state can be cloned cheaply.
type LSTM struct {
	InputDim  int
	HiddenDim int

	Wi, Wf, Wg, Wo []float32
	Ui, Uf, Ug, Uo []float32
	Bi, Bf, Bg, Bo []float32
}

// Step advances the layer by one input x given the previous hidden and cell
// vectors, writing the next hidden and cell state into hOut and cOut.
// hOut/cOut may not alias h/c.
func (l *LSTM) Step(x, h, c, hOut, cOut []float32) {
	n := l.HiddenDim
	gates := make([]float32, 4*n)
	gi := gates[0*n : 1*n]
	gf := gates[1*n : 2*n]
	gg := gates[2*n : 3*n]
	go_ := gates[3*n : 4*n]

	copy(gi, l.Bi)
	copy(gf, l.Bf)
	copy(gg, l.Bg)
	copy(go_, l.Bo)

	matVecAdd(gi, l.Wi, x, n, l.InputDim)
	matVecAdd(gf, l.Wf, x, n, l.InputDim)
	matVecAdd(gg, l.Wg, x, n, l.InputDim)
	matVecAdd(go_, l.Wo, x, n, l.InputDim)

	matVecAdd(gi, l.Ui, h, n, n)
	matVecAdd(gf, l.Uf, h, n, n)
	matVecAdd(gg, l.Ug, h, n, n)
	matVecAdd(go_, l.Uo, h, n, n)

	for j := 0; j < n; j++ {
		i := sigmoid(gi[j])
		f := sigmoid(gf[j])
		g := tanhf(gg[j])
		o := sigmoid(go_[j])
		cOut[j] = f*c[j] + i*g
		hOut[j] = o * tanhf(cOut[j])
	}
}

// weights returns all weight slices with their expected lengths, used by the
// bundle loader and by Validate.
func (l *LSTM) weights(prefix string) []namedTensor {
	in, n := l.InputDim, l.HiddenDim
	return []namedTensor{
		{prefix + ".wi", &l.Wi, n * in}, {prefix + ".wf", &l.Wf, n * in},
		{prefix + ".wg", &l.Wg, n * in}, {prefix + ".wo", &l.Wo, n * in},
		{prefix + ".ui", &l.Ui, n * n}, {prefix + ".uf", &l.Uf, n * n},
		{prefix + ".ug", &l.Ug, n * n}, {prefix + ".uo", &l.Uo, n * n},
		{prefix + ".bi", &l.Bi, n}, {prefix + ".bf", &l.Bf, n},
		{prefix + ".bg", &l.Bg, n}, {prefix + ".bo", &l.Bo, n},
	}
}
