package seq2seq

import (
	"context"
	"math"
	"sort"

	"github.com/ocrtools/corasv/pkg/vocab"
)

// minCandidateProb is the probability assumed for a candidate that had to be
// re-admitted after the beam ran empty, so its log stays finite.
const minCandidateProb = 1e-12

// hypothesis is one partial output: emitted symbol ids, cumulative
// log-probability, the decoder state snapshot, and bookkeeping for the
// result. Hypotheses are owned by a single decoding session.
type hypothesis struct {
	syms        []int
	logp        float64
	steps       int // emissions scored, stop included
	state       State
	done        bool
	probs       []float64
	aligns      []AlignPoint
	exhaustions int
}

// norm is the length-normalized score used for ranking, so shorter outputs
// are not favored over longer ones.
func (h *hypothesis) norm() float64 {
	if h.steps == 0 {
		return 0
	}
	return h.logp / float64(h.steps)
}

func (h *hypothesis) result(voc *vocab.Vocabulary) *Corrected {
	var score float64
	if h.steps > 0 {
		score = -h.logp / float64(h.steps)
	}
	return &Corrected{
		Text:        voc.Decode(h.syms),
		Probs:       h.probs,
		Score:       score,
		Alignment:   h.aligns,
		Exhaustions: h.exhaustions,
	}
}

// decodeBeam runs the beamed search for one session. All hypotheses in the
// beam always share the same output length; finished ones stay frozen until
// every hypothesis finished or the step cap is reached. Cancellation is
// checked once per step.
func decodeBeam(ctx context.Context, voc *vocab.Vocabulary, sess Session, inputIDs []int, opts Options) (*Corrected, error) {
	beam := []*hypothesis{{state: sess.Start()}}
	maxLen := opts.maxLength(sess.InputLen())

	for step := 0; step < maxLen; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		live := false
		next := make([]*hypothesis, 0, len(beam)*4)
		for _, h := range beam {
			if h.done {
				next = append(next, h)
				continue
			}
			live = true
			prev := vocab.StartID
			if len(h.syms) > 0 {
				prev = h.syms[len(h.syms)-1]
			}
			res := sess.Step(h.state, prev)
			next = append(next, expand(h, res, inputIDs, opts)...)
		}
		if !live {
			break
		}
		sort.SliceStable(next, func(i, j int) bool {
			return next[i].norm() > next[j].norm()
		})
		if len(next) > opts.FixedBeamWidth {
			next = next[:opts.FixedBeamWidth]
		}
		beam = next
	}

	best := beam[0]
	for _, h := range beam[1:] {
		if (h.done && !best.done) || (h.done == best.done && h.norm() > best.norm()) {
			best = h
		}
	}
	return best.result(voc), nil
}

type candidate struct {
	id int
	p  float64
}

// expand generates the surviving extensions of one hypothesis.
//
// Pruning is two-fold: a candidate must reach RelativeBeamWidth times the
// best candidate's probability, and the candidate copying the aligned input
// symbol has its probability floored at RejectionThreshold first (the
// precision/recall control). When nothing survives — an uncertain model under
// a harsh threshold — the single best candidate is re-admitted so the beam
// can never run empty.
func expand(h *hypothesis, res StepResult, inputIDs []int, opts Options) []*hypothesis {
	pos := len(h.syms)
	reject := -1
	if pos < len(inputIDs) {
		if id := inputIDs[pos]; id >= vocab.NumReserved {
			reject = id
		}
	} else {
		// Past the input's end the faithful continuation is to stop.
		reject = vocab.StopID
	}

	var best float64
	cands := make([]candidate, 0, 8)
	for id := vocab.StopID; id < len(res.Probs); id++ {
		p := float64(res.Probs[id])
		if id == reject && p < opts.RejectionThreshold {
			p = opts.RejectionThreshold
		}
		if p <= 0 {
			continue
		}
		cands = append(cands, candidate{id, p})
		if p > best {
			best = p
		}
	}

	survivors := cands[:0]
	for _, c := range cands {
		if c.p >= opts.RelativeBeamWidth*best {
			survivors = append(survivors, c)
		}
	}

	exhausted := false
	if len(survivors) == 0 {
		exhausted = true
		id := bestSymbol(res.Probs)
		p := float64(res.Probs[id])
		if p < minCandidateProb {
			p = minCandidateProb
		}
		survivors = []candidate{{id, p}}
	}

	out := make([]*hypothesis, 0, len(survivors))
	for _, c := range survivors {
		nh := &hypothesis{
			logp:        h.logp + math.Log(c.p),
			steps:       h.steps + 1,
			state:       res.State,
			exhaustions: h.exhaustions,
		}
		if exhausted {
			nh.exhaustions++
		}
		if c.id == vocab.StopID {
			nh.done = true
			nh.syms = h.syms
			nh.probs = h.probs
			nh.aligns = h.aligns
			out = append(out, nh)
			continue
		}
		nh.syms = append(append(make([]int, 0, len(h.syms)+1), h.syms...), c.id)
		nh.probs = append(append(make([]float64, 0, len(h.probs)+1), h.probs...), c.p)
		nh.aligns = append(append(make([]AlignPoint, 0, len(h.aligns)+1), h.aligns...), alignPoint(res))
		out = append(out, nh)
	}
	return out
}

// bestSymbol is argmax over emittable symbols (stop included, padding and
// start excluded).
func bestSymbol(probs []float32) int {
	best := vocab.StopID
	for id := vocab.StopID + 1; id < len(probs); id++ {
		if id == vocab.StartID || id == vocab.PadID {
			continue
		}
		if probs[id] > probs[best] {
			best = id
		}
	}
	return best
}

func alignPoint(res StepResult) AlignPoint {
	ap := AlignPoint{
		InputPos: res.WindowLo,
		WindowLo: res.WindowLo,
		Weights:  make([]float64, len(res.Weights)),
	}
	bestW := float32(-1)
	for i, w := range res.Weights {
		ap.Weights[i] = float64(w)
		if w > bestW {
			bestW = w
			ap.InputPos = res.WindowLo + i
		}
	}
	return ap
}
