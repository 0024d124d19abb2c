// Package seq2seq drives the correction model: it owns the beam search over
// decoder hypotheses, the fast batched-greedy mode, and the [Corrector] API
// that turns noisy recognizer lines into corrected ones.
//
// The search is written against the small [Model]/[Session] interfaces rather
// than the concrete network so that tests can substitute deterministic or
// adversarial models; [Wrap] adapts a loaded [model.Model].
package seq2seq

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ocrtools/corasv/pkg/vocab"
)

// ErrInvalidInput marks calls rejected up front: empty input lines, unknown
// symbols without gap fallback, or out-of-range search options. The process
// keeps running; only the offending call fails.
var ErrInvalidInput = errors.New("seq2seq: invalid input")

// State is the opaque per-hypothesis decoder state. Implementations must
// treat a State passed to [Session.Step] as read-only so hypotheses can
// branch from a shared snapshot.
type State any

// StepResult is one decoder step: the next-symbol distribution over the full
// vocabulary (indexed by id, including reserved ids), the advanced state, and
// the attention window for soft input/output alignment.
type StepResult struct {
	Probs    []float32
	State    State
	WindowLo int
	Weights  []float32
}

// Session is one input sequence prepared for decoding (encoder already run).
// Sessions are owned by a single decoding call and are not reused.
type Session interface {
	// InputLen returns the number of input positions.
	InputLen() int
	// Start returns the initial decoder state.
	Start() State
	// Step advances by one output position given the previous output symbol
	// id. It must not mutate st.
	Step(st State, prev int) StepResult
}

// Model produces decoding sessions. Implementations must be safe for
// unlimited concurrent callers.
type Model interface {
	Vocab() *vocab.Vocabulary
	// ContextDim returns the size of the conditioning vector the model was
	// trained with, 0 for unconditioned models.
	ContextDim() int
	// NewSession encodes ids (optionally biased by a context vector) and
	// returns a fresh decoding session.
	NewSession(ids []int, context []float32) (Session, error)
}

// Default search parameters, matching the tuning the models ship with.
const (
	DefaultRejectionThreshold = 0.5
	DefaultRelativeBeamWidth  = 0.2
	DefaultFixedBeamWidth     = 15
)

// Options control one correction call.
type Options struct {
	// RejectionThreshold floors the probability of the candidate that copies
	// the aligned input symbol. 0 leaves model edits untouched (maximum
	// recall of corrections), 1 makes the input copy always win (maximum
	// precision, correction disabled).
	RejectionThreshold float64

	// RelativeBeamWidth prunes candidates whose probability falls below this
	// fraction of the best candidate in the same expansion. Must be > 0.
	RelativeBeamWidth float64

	// FixedBeamWidth caps the number of hypotheses kept per step.
	FixedBeamWidth int

	// FastMode replaces the beam with lockstep batched argmax decoding.
	// Rejection and both beam widths are ignored.
	FastMode bool

	// MaxLength caps the output length. 0 derives the cap from the input
	// length (2·n+8), which bounds latency on pathological inputs.
	MaxLength int

	// GapFallback maps symbols outside the vocabulary to the underspecified
	// id instead of failing the call.
	GapFallback bool
}

// DefaultOptions returns the beamed-mode defaults.
func DefaultOptions() Options {
	return Options{
		RejectionThreshold: DefaultRejectionThreshold,
		RelativeBeamWidth:  DefaultRelativeBeamWidth,
		FixedBeamWidth:     DefaultFixedBeamWidth,
	}
}

// Validate reports the first out-of-range option.
func (o Options) Validate() error {
	if o.RejectionThreshold < 0 || o.RejectionThreshold > 1 {
		return fmt.Errorf("%w: rejection threshold %g outside [0,1]", ErrInvalidInput, o.RejectionThreshold)
	}
	if !o.FastMode {
		if o.RelativeBeamWidth <= 0 {
			return fmt.Errorf("%w: relative beam width %g must be positive", ErrInvalidInput, o.RelativeBeamWidth)
		}
		if o.FixedBeamWidth < 1 {
			return fmt.Errorf("%w: fixed beam width %d must be at least 1", ErrInvalidInput, o.FixedBeamWidth)
		}
	}
	if o.MaxLength < 0 {
		return fmt.Errorf("%w: max length %d must not be negative", ErrInvalidInput, o.MaxLength)
	}
	return nil
}

func (o Options) maxLength(inputLen int) int {
	if o.MaxLength > 0 {
		return o.MaxLength
	}
	return 2*inputLen + 8
}

// AlignPoint records, for one output symbol, which input position the
// attention focused on and the full window weights. Callers use this to map
// corrections back onto upstream segment boundaries.
type AlignPoint struct {
	InputPos int
	WindowLo int
	Weights  []float64
}

// Corrected is the result of one correction call.
type Corrected struct {
	// Text is the corrected line.
	Text string

	// Probs holds the model probability of each output symbol.
	Probs []float64

	// Score is the mean negative log-probability of the output.
	Score float64

	// Alignment has one entry per output symbol.
	Alignment []AlignPoint

	// Exhaustions counts beam steps where every candidate was pruned and the
	// best one was re-admitted to keep the beam non-empty.
	Exhaustions int

	// Elapsed is the wall time spent encoding and decoding this sequence.
	// Fast-mode batches advance in lockstep, so their sequences share the
	// batch time.
	Elapsed time.Duration
}

// Perplexity returns exp(Score), the per-symbol perplexity of the output.
func (c *Corrected) Perplexity() float64 { return math.Exp(c.Score) }
