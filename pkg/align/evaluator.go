package align

import (
	"context"
	"fmt"
	"runtime"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// EvaluatorOption is a functional option for configuring an [Evaluator].
type EvaluatorOption func(*Evaluator)

// WithMetric selects the equivalence scheme. Default: [Levenshtein].
func WithMetric(m Metric) EvaluatorOption {
	return func(e *Evaluator) {
		e.metric = m
	}
}

// WithEquivalences extends the historic-orthography equivalence classes with
// additional variant → canonical mappings (see [LoadEquivalences]). Only
// consulted by the [HistoricLatin] metric.
func WithEquivalences(eq map[rune]rune) EvaluatorOption {
	return func(e *Evaluator) {
		e.extra = eq
	}
}

// WithMaxCells overrides the alignment table safety bound.
// Default: [DefaultMaxCells].
func WithMaxCells(n int) EvaluatorOption {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxCells = n
		}
	}
}

// WithEvalWorkers bounds the concurrency of [Evaluator.EvaluateLines].
// Default: runtime.GOMAXPROCS(0).
func WithEvalWorkers(n int) EvaluatorOption {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// Evaluator measures recognized or corrected text against ground truth.
// It is read-only after construction and safe for concurrent use.
type Evaluator struct {
	metric   Metric
	extra    map[rune]rune
	maxCells int
	workers  int
	key      func(rune) string
}

// NewEvaluator returns an Evaluator with the supplied options.
func NewEvaluator(opts ...EvaluatorOption) (*Evaluator, error) {
	e := &Evaluator{
		metric:   Levenshtein,
		maxCells: DefaultMaxCells,
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(e)
	}
	if !e.metric.IsValid() {
		return nil, fmt.Errorf("align: unknown metric %q", e.metric)
	}
	e.key = e.metric.keyFunc(e.extra)
	return e, nil
}

// Metric returns the active metric.
func (e *Evaluator) Metric() Metric { return e.metric }

// Evaluate aligns hypothesis against reference and returns distance, rate and
// the ordered edit list. The rate is normalized by the reference length.
func (e *Evaluator) Evaluate(reference, hypothesis string) (*Result, error) {
	src, tgt, err := e.prepare(reference, hypothesis)
	if err != nil {
		return nil, err
	}
	dist, edits := alignRunes(src, tgt, e.key)
	return &Result{
		Distance: dist,
		Rate:     float64(dist) / float64(max(1, len(src))),
		Edits:    edits,
	}, nil
}

// Distance is the fast path when only the edit count is needed: under the
// plain Levenshtein metric it delegates to matchr and skips the backtrace.
func (e *Evaluator) Distance(reference, hypothesis string) (int, error) {
	if e.metric == Levenshtein {
		return matchr.Levenshtein(reference, hypothesis), nil
	}
	res, err := e.Evaluate(reference, hypothesis)
	if err != nil {
		return 0, err
	}
	return res.Distance, nil
}

func (e *Evaluator) prepare(reference, hypothesis string) ([]rune, []rune, error) {
	if e.metric != Levenshtein {
		if !utf8.ValidString(reference) || !utf8.ValidString(hypothesis) {
			return nil, nil, fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidInput)
		}
		// Fold combining sequences up front; the per-symbol keys below only
		// see single runes.
		reference = norm.NFC.String(reference)
		hypothesis = norm.NFC.String(hypothesis)
	}
	src := []rune(reference)
	tgt := []rune(hypothesis)
	if cells := (len(src) + 1) * (len(tgt) + 1); cells > e.maxCells {
		return nil, nil, fmt.Errorf("%w: alignment table of %d cells exceeds bound %d",
			ErrInvalidInput, cells, e.maxCells)
	}
	return src, tgt, nil
}

// Pair is one evaluation input: ground truth and the text to measure.
type Pair struct {
	Reference  string
	Hypothesis string
}

// RunResult aggregates one evaluation run.
type RunResult struct {
	// Lines holds the per-pair results in input order.
	Lines []*Result

	// Distance and RefLength accumulate over all pairs; Rate is their
	// quotient (micro-averaged error rate).
	Distance  int
	RefLength int
	Rate      float64

	// MeanRate is the macro average of the per-line rates.
	MeanRate float64

	// Confusion ranks the non-match edits of the whole run.
	Confusion *ConfusionTable
}

// EvaluateLines aligns all pairs, concurrently on a bounded worker pool, and
// aggregates distances, rates and the run-wide confusion table. The
// confusion table is filled from the ordered per-line results after the
// workers finish, so its first-seen order is deterministic.
func (e *Evaluator) EvaluateLines(ctx context.Context, pairs []Pair) (*RunResult, error) {
	run := &RunResult{
		Lines:     make([]*Result, len(pairs)),
		Confusion: NewConfusionTable(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.Evaluate(p.Reference, p.Hypothesis)
			if err != nil {
				return fmt.Errorf("pair %d: %w", i, err)
			}
			run.Lines[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rateSum float64
	for i, res := range run.Lines {
		run.Distance += res.Distance
		run.RefLength += len([]rune(pairs[i].Reference))
		rateSum += res.Rate
		run.Confusion.AddAll(res.Edits)
	}
	run.Rate = float64(run.Distance) / float64(max(1, run.RefLength))
	if len(pairs) > 0 {
		run.MeanRate = rateSum / float64(len(pairs))
	}
	return run, nil
}
