package model

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ocrtools/corasv/pkg/vocab"
)

// testModel builds a small model with pseudo-random weights from a fixed seed.
func testModel(t *testing.T, symbols string, contextDim int) *Model {
	t.Helper()
	voc, err := vocab.New([]rune(symbols))
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}
	m := &Model{
		Params: Params{EmbedDim: 4, HiddenDim: 5, ContextDim: contextDim, Window: 3},
		Vocab:  voc,
	}
	m.Enc = LSTM{InputDim: m.EmbedDim, HiddenDim: m.HiddenDim}
	m.Dec = LSTM{InputDim: m.EmbedDim + m.HiddenDim, HiddenDim: m.HiddenDim}
	rng := rand.New(rand.NewSource(7))
	for _, nt := range m.tensors() {
		data := make([]float32, nt.size)
		for i := range data {
			data[i] = float32(rng.NormFloat64()) * 0.4
		}
		*nt.data = data
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return m
}

func encodeIDs(t *testing.T, m *Model, s string) []int {
	t.Helper()
	ids, err := m.Vocab.Encode(s, false)
	if err != nil {
		t.Fatalf("Encode(%q): %v", s, err)
	}
	return ids
}

func TestEncodeDeterministic(t *testing.T) {
	t.Parallel()

	m := testModel(t, "abcde", 0)
	ids := encodeIDs(t, m, "abcad")
	a, err := m.Encode(ids, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := m.Encode(ids, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if a.Len() != len(ids) || b.Len() != len(ids) {
		t.Fatalf("encoded %d/%d positions, want %d", a.Len(), b.Len(), len(ids))
	}
	for p := range a.States {
		for j := range a.States[p] {
			if a.States[p][j] != b.States[p][j] {
				t.Fatalf("state[%d][%d] differs between runs: %v vs %v",
					p, j, a.States[p][j], b.States[p][j])
			}
		}
	}
}

func TestEncodeInvalidInput(t *testing.T) {
	t.Parallel()

	m := testModel(t, "abc", 2)
	if _, err := m.Encode(nil, []float32{0, 0}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty sequence: err=%v, want ErrInvalidInput", err)
	}
	if _, err := m.Encode([]int{vocab.NumReserved}, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("short context: err=%v, want ErrInvalidInput", err)
	}
	if _, err := m.Encode([]int{m.Vocab.Size()}, []float32{0, 0}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("id out of range: err=%v, want ErrInvalidInput", err)
	}
}

func TestContextBiasChangesEncoding(t *testing.T) {
	t.Parallel()

	m := testModel(t, "abc", 2)
	ids := encodeIDs(t, m, "abc")
	a, err := m.Encode(ids, []float32{0.5, -0.5})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := m.Encode(ids, []float32{-1, 1})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	same := true
	for j := range a.SummaryH {
		if a.SummaryH[j] != b.SummaryH[j] {
			same = false
			break
		}
	}
	if same {
		t.Error("different context vectors produced identical encodings")
	}
}

func TestStepDistribution(t *testing.T) {
	t.Parallel()

	m := testModel(t, "abcde", 0)
	enc, err := m.Encode(encodeIDs(t, m, "dcbae"), nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	res := m.Step(enc, m.Start(enc), vocab.StartID)
	if len(res.Probs) != m.Vocab.Size() {
		t.Fatalf("got %d probabilities, want %d", len(res.Probs), m.Vocab.Size())
	}
	var sum float64
	for _, p := range res.Probs {
		if p < 0 {
			t.Fatalf("negative probability %v", p)
		}
		sum += float64(p)
	}
	if math.Abs(sum-1) > 1e-4 {
		t.Errorf("probabilities sum to %v, want 1", sum)
	}
	if len(res.Weights) == 0 || res.WindowLo < 0 {
		t.Errorf("attention window lo=%d weights=%v", res.WindowLo, res.Weights)
	}
	var wsum float64
	for _, w := range res.Weights {
		wsum += float64(w)
	}
	if math.Abs(wsum-1) > 1e-4 {
		t.Errorf("attention weights sum to %v, want 1", wsum)
	}
}

func TestStepDoesNotMutateState(t *testing.T) {
	t.Parallel()

	m := testModel(t, "abcde", 0)
	enc, err := m.Encode(encodeIDs(t, m, "abcde"), nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	st := m.Start(enc)
	before := st.Clone()
	m.Step(enc, st, vocab.StartID)
	for j := range st.H {
		if st.H[j] != before.H[j] || st.C[j] != before.C[j] {
			t.Fatal("Step mutated the input state")
		}
	}
	if st.Center != before.Center {
		t.Fatal("Step mutated the attention center")
	}
}

func TestAttentionCenterMonotonic(t *testing.T) {
	t.Parallel()

	m := testModel(t, "abcdefgh", 0)
	enc, err := m.Encode(encodeIDs(t, m, "abcdefghabcdefgh"), nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	st := m.Start(enc)
	prev := st.Center
	sym := vocab.StartID
	for step := 0; step < 20; step++ {
		res := m.Step(enc, st, sym)
		if res.State.Center < prev {
			t.Fatalf("step %d: center moved backwards %v -> %v", step, prev, res.State.Center)
		}
		if lo := res.WindowLo; lo < 0 || lo >= enc.Len() {
			t.Fatalf("step %d: window lo %d outside input", step, lo)
		}
		prev = res.State.Center
		st = res.State
		sym = argmax(res.Probs)
	}
}
