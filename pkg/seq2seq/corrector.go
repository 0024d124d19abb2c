package seq2seq

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// CorrectorOption is a functional option for configuring a [Corrector].
type CorrectorOption func(*Corrector)

// WithLogger sets the logger used for soft warnings (beam exhaustion).
// Default: slog.Default().
func WithLogger(l *slog.Logger) CorrectorOption {
	return func(c *Corrector) {
		c.log = l
	}
}

// WithWorkers bounds the number of lines corrected concurrently in beamed
// batch mode. Default: runtime.GOMAXPROCS(0).
func WithWorkers(n int) CorrectorOption {
	return func(c *Corrector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// Corrector applies the correction model to recognizer output lines. It holds
// only the read-only model handle and is safe for concurrent use; every call
// owns its hypotheses exclusively.
type Corrector struct {
	model   Model
	log     *slog.Logger
	workers int
}

// NewCorrector returns a Corrector over m.
func NewCorrector(m Model, opts ...CorrectorOption) *Corrector {
	c := &Corrector{
		model:   m,
		log:     slog.Default(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct decodes one line. ctxVec is the optional conditioning vector for
// this line (nil when the model was trained without one). Empty lines and —
// unless opts.GapFallback is set — lines with symbols outside the vocabulary
// fail with [ErrInvalidInput].
func (c *Corrector) Correct(ctx context.Context, line string, ctxVec []float32, opts Options) (*Corrected, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	res, err := c.correctOne(ctx, line, ctxVec, opts)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Corrector) correctOne(ctx context.Context, line string, ctxVec []float32, opts Options) (*Corrected, error) {
	start := time.Now()
	ids, err := c.encodeLine(line, opts)
	if err != nil {
		return nil, err
	}
	sess, err := c.model.NewSession(ids, ctxVec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var res *Corrected
	if opts.FastMode {
		out, err := decodeGreedy(ctx, c.model.Vocab(), []Session{sess}, opts)
		if err != nil {
			return nil, err
		}
		res = out[0]
	} else {
		res, err = decodeBeam(ctx, c.model.Vocab(), sess, ids, opts)
		if err != nil {
			return nil, err
		}
		res.Elapsed = time.Since(start)
	}
	if res.Exhaustions > 0 {
		c.log.Warn("beam ran empty, best candidate re-admitted",
			"steps", res.Exhaustions, "line_len", len(ids))
	}
	return res, nil
}

// CorrectLines decodes a batch. contexts may be nil or must have one entry
// per line. In beamed mode lines are independent and corrected concurrently
// on a bounded worker pool; in fast mode the whole batch is stepped in
// lockstep as one session group. Results keep the input order.
func (c *Corrector) CorrectLines(ctx context.Context, lines []string, contexts [][]float32, opts Options) ([]*Corrected, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if contexts != nil && len(contexts) != len(lines) {
		return nil, fmt.Errorf("%w: %d context vectors for %d lines",
			ErrInvalidInput, len(contexts), len(lines))
	}
	lineContext := func(i int) []float32 {
		if contexts == nil {
			return nil
		}
		return contexts[i]
	}

	if opts.FastMode {
		sessions := make([]Session, len(lines))
		for i, line := range lines {
			ids, err := c.encodeLine(line, opts)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i, err)
			}
			sess, err := c.model.NewSession(ids, lineContext(i))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w: %v", i, ErrInvalidInput, err)
			}
			sessions[i] = sess
		}
		return decodeGreedy(ctx, c.model.Vocab(), sessions, opts)
	}

	out := make([]*Corrected, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			res, err := c.correctOne(gctx, line, lineContext(i), opts)
			if err != nil {
				return fmt.Errorf("line %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Corrector) encodeLine(line string, opts Options) ([]int, error) {
	if line == "" {
		return nil, fmt.Errorf("%w: empty sequence", ErrInvalidInput)
	}
	ids, err := c.model.Vocab().Encode(line, opts.GapFallback)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return ids, nil
}
