package seq2seq_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ocrtools/corasv/pkg/seq2seq"
)

func TestConfidenceContext(t *testing.T) {
	t.Parallel()

	if got := seq2seq.ConfidenceContext([]float64{0.5}, 0); got != nil {
		t.Errorf("dim 0: got %v, want nil", got)
	}

	got := seq2seq.ConfidenceContext([]float64{1.2, 0.8, -0.2}, 4)
	if len(got) != 4 {
		t.Fatalf("got %d entries, want 4", len(got))
	}
	for i := 0; i < 3; i++ {
		if got[i] != 0 {
			t.Errorf("entry %d = %v, want 0", i, got[i])
		}
	}
	// 1.2 and -0.2 clamp to 1 and 0, so the mean is (1+0.8+0)/3.
	if want := float32(0.6); got[3] != want {
		t.Errorf("tail = %v, want %v", got[3], want)
	}

	empty := seq2seq.ConfidenceContext(nil, 2)
	if len(empty) != 2 || empty[0] != 0 || empty[1] != 0 {
		t.Errorf("no confidences: got %v, want a zero vector", empty)
	}
}

func TestCorrectLinesWithConfidences(t *testing.T) {
	t.Parallel()

	m := fraktur(t)
	m.ctxDim = 4
	c := seq2seq.NewCorrector(m, quiet())

	out, err := c.CorrectLinesWithConfidences(context.Background(),
		[]string{"teh qick fox"}, [][]float64{{1.2, 0.8, -0.2}}, seq2seq.DefaultOptions())
	if err != nil {
		t.Fatalf("CorrectLinesWithConfidences: %v", err)
	}
	if out[0].Text != "the quick fox" {
		t.Errorf("Text=%q, want %q", out[0].Text, "the quick fox")
	}

	if len(m.contexts) != 1 {
		t.Fatalf("model saw %d context vectors, want 1", len(m.contexts))
	}
	got := m.contexts[0]
	want := []float32{0, 0, 0, 0.6}
	if len(got) != len(want) {
		t.Fatalf("context %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("context[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCorrectLinesWithConfidencesUnconditionedModel(t *testing.T) {
	t.Parallel()

	m := fraktur(t)
	c := seq2seq.NewCorrector(m, quiet())
	out, err := c.CorrectLinesWithConfidences(context.Background(),
		[]string{"teh"}, [][]float64{{0.9, 0.9, 0.9}}, seq2seq.DefaultOptions())
	if err != nil {
		t.Fatalf("CorrectLinesWithConfidences: %v", err)
	}
	if out[0].Text != "the" {
		t.Errorf("Text=%q, want %q", out[0].Text, "the")
	}
	if got := m.contexts[0]; got != nil {
		t.Errorf("unconditioned model received context %v, want nil", got)
	}
}

func TestCorrectLinesWithConfidencesCountMismatch(t *testing.T) {
	t.Parallel()

	c := seq2seq.NewCorrector(fraktur(t), quiet())
	_, err := c.CorrectLinesWithConfidences(context.Background(),
		[]string{"a", "b"}, [][]float64{{1}}, seq2seq.DefaultOptions())
	if !errors.Is(err, seq2seq.ErrInvalidInput) {
		t.Errorf("err=%v, want ErrInvalidInput", err)
	}
}
