// Package model implements the character-level encoder–attention–decoder
// network used for OCR post-correction, together with its on-disk parameter
// bundle. All math is plain float32 on slices; a loaded [Model] is immutable
// and safe for unlimited concurrent readers, so any number of decoding
// sessions can share one handle.
package model

import (
	"errors"
	"fmt"

	"github.com/ocrtools/corasv/pkg/vocab"
)

// ErrInvalidInput marks inputs the model cannot encode (unknown symbols
// without gap fallback, mismatched context vector size).
var ErrInvalidInput = errors.New("model: invalid input")

// DefaultWindow is the attention window width used when a bundle does not
// override it.
const DefaultWindow = 6

// Params are the hyperparameters of a model. They are fixed at training time
// and stored in the bundle header.
type Params struct {
	EmbedDim   int
	HiddenDim  int
	ContextDim int // 0 = model was trained without conditioning input
	Window     int // attention window width
}

// Model is an immutable parameter bundle: vocabulary plus the weights of the
// context encoder, sequence encoder, local attention and sequence decoder.
type Model struct {
	Params
	Vocab *vocab.Vocabulary

	// Embedding is shared between encoder input and decoder input,
	// row-major Vocab.Size()×EmbedDim.
	Embedding []float32

	// Context encoder: affine map from the context vector onto the encoder's
	// initial hidden state, HiddenDim×ContextDim plus bias.
	CtxW []float32
	CtxB []float32

	Enc LSTM // input EmbedDim
	Dec LSTM // input EmbedDim+HiddenDim (previous symbol ++ attention context)

	// AttnQuery projects the decoder hidden state into the encoder state
	// space for scoring, HiddenDim×HiddenDim.
	AttnQuery []float32

	// Output projection onto the vocabulary, Vocab.Size()×HiddenDim plus bias.
	OutW []float32
	OutB []float32
}

// Encoded is the encoder's view of one input sequence: one hidden state per
// input position plus the final summary state. It is read-only after Encode
// and may be shared by all hypotheses of a decoding session.
type Encoded struct {
	States   [][]float32 // len(input) × HiddenDim
	SummaryH []float32
	SummaryC []float32
}

// Len returns the number of encoded input positions.
func (e *Encoded) Len() int { return len(e.States) }

// DecoderState is the cloneable per-hypothesis recurrent state: the decoder
// LSTM hidden/cell pair and the monotonic attention center.
type DecoderState struct {
	H      []float32
	C      []float32
	Center float64
}

// Clone returns a deep copy, so diverging beam hypotheses never share state
// vectors.
func (s *DecoderState) Clone() *DecoderState {
	c := &DecoderState{
		H:      make([]float32, len(s.H)),
		C:      make([]float32, len(s.C)),
		Center: s.Center,
	}
	copy(c.H, s.H)
	copy(c.C, s.C)
	return c
}

// StepResult is the outcome of one decoder step: the next-symbol distribution
// over the full vocabulary, the advanced state, and the attention window that
// produced the context (for soft input/output alignment).
type StepResult struct {
	Probs    []float32
	State    *DecoderState
	WindowLo int       // encoder position of Weights[0]
	Weights  []float32 // attention weights over the window, sum 1
}

// Encode runs the sequence encoder over ids, biasing the initial hidden state
// once by the context vector. ids must be non-empty and within the
// vocabulary's id space; context must have exactly ContextDim entries (nil is
// accepted when ContextDim is 0).
func (m *Model) Encode(ids []int, context []float32) (*Encoded, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty sequence", ErrInvalidInput)
	}
	if len(context) != m.ContextDim {
		return nil, fmt.Errorf("%w: context vector has %d entries, model wants %d",
			ErrInvalidInput, len(context), m.ContextDim)
	}
	n := m.HiddenDim
	h := make([]float32, n)
	c := make([]float32, n)
	if m.ContextDim > 0 {
		// Initial-state bias, applied exactly once.
		copy(h, m.CtxB)
		matVecAdd(h, m.CtxW, context, n, m.ContextDim)
		for j := range h {
			h[j] = tanhf(h[j])
		}
	}

	enc := &Encoded{States: make([][]float32, len(ids))}
	for t, id := range ids {
		if id < 0 || id >= m.Vocab.Size() {
			return nil, fmt.Errorf("%w: id %d outside vocabulary", ErrInvalidInput, id)
		}
		x := m.Embedding[id*m.EmbedDim : (id+1)*m.EmbedDim]
		hNext := make([]float32, n)
		cNext := make([]float32, n)
		m.Enc.Step(x, h, c, hNext, cNext)
		enc.States[t] = hNext
		h, c = hNext, cNext
	}
	enc.SummaryH = h
	enc.SummaryC = c
	return enc, nil
}

// Start derives the initial decoder state from the encoder summary. The
// attention center starts at the first input position.
func (m *Model) Start(enc *Encoded) *DecoderState {
	s := &DecoderState{
		H: make([]float32, m.HiddenDim),
		C: make([]float32, m.HiddenDim),
	}
	copy(s.H, enc.SummaryH)
	copy(s.C, enc.SummaryC)
	return s
}

// Step advances the decoder by one output position: attend over the local
// window around the state's center, feed the previous output symbol and the
// attention context through the decoder LSTM, and project onto the
// vocabulary. Step never mutates st, so hypotheses can branch from a shared
// state.
func (m *Model) Step(enc *Encoded, st *DecoderState, prev int) StepResult {
	ctx, lo, weights, center := m.attend(enc, st)

	// Decoder input: embedding of the previous output symbol ++ context.
	x := make([]float32, m.EmbedDim+m.HiddenDim)
	copy(x, m.Embedding[prev*m.EmbedDim:(prev+1)*m.EmbedDim])
	copy(x[m.EmbedDim:], ctx)

	next := &DecoderState{
		H:      make([]float32, m.HiddenDim),
		C:      make([]float32, m.HiddenDim),
		Center: center,
	}
	m.Dec.Step(x, st.H, st.C, next.H, next.C)

	logits := make([]float32, m.Vocab.Size())
	copy(logits, m.OutB)
	matVecAdd(logits, m.OutW, next.H, m.Vocab.Size(), m.HiddenDim)
	softmaxInPlace(logits)

	return StepResult{Probs: logits, State: next, WindowLo: lo, Weights: weights}
}

// Validate checks that every weight group is present with the exact length
// the hyperparameters demand.
func (m *Model) Validate() error {
	if m.Vocab == nil {
		return errors.New("model: nil vocabulary")
	}
	if m.EmbedDim <= 0 || m.HiddenDim <= 0 || m.Window <= 0 {
		return fmt.Errorf("model: non-positive dimensions %+v", m.Params)
	}
	for _, t := range m.tensors() {
		if len(*t.data) != t.size {
			return fmt.Errorf("model: tensor %s has %d values, want %d",
				t.name, len(*t.data), t.size)
		}
	}
	return nil
}

type namedTensor struct {
	name string
	data *[]float32
	size int
}

func (m *Model) tensors() []namedTensor {
	voc, n := m.Vocab.Size(), m.HiddenDim
	ts := []namedTensor{
		{"embedding", &m.Embedding, voc * m.EmbedDim},
	}
	if m.ContextDim > 0 {
		ts = append(ts,
			namedTensor{"ctx.w", &m.CtxW, n * m.ContextDim},
			namedTensor{"ctx.b", &m.CtxB, n},
		)
	}
	ts = append(ts, m.Enc.weights("enc")...)
	ts = append(ts, m.Dec.weights("dec")...)
	ts = append(ts,
		namedTensor{"attn.query", &m.AttnQuery, n * n},
		namedTensor{"out.w", &m.OutW, voc * n},
		namedTensor{"out.b", &m.OutB, voc},
	)
	return ts
}
