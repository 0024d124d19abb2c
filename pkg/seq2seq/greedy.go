package seq2seq

import (
	"context"
	"math"
	"time"

	"github.com/ocrtools/corasv/pkg/vocab"
)

// decodeGreedy is the fast mode: all sessions advance in lockstep, each step
// takes the single argmax symbol per sequence, and sequences stop
// independently once they emit the end marker or hit their own length cap.
// No beams, no rejection, no width pruning — strictly faster, lower quality.
func decodeGreedy(ctx context.Context, voc *vocab.Vocabulary, sessions []Session, opts Options) ([]*Corrected, error) {
	start := time.Now()
	states := make([]State, len(sessions))
	hyps := make([]*hypothesis, len(sessions))
	caps := make([]int, len(sessions))
	maxSteps := 0
	for i, s := range sessions {
		states[i] = s.Start()
		hyps[i] = &hypothesis{}
		caps[i] = opts.maxLength(s.InputLen())
		if caps[i] > maxSteps {
			maxSteps = caps[i]
		}
	}

	for step := 0; step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		live := false
		for i, s := range sessions {
			h := hyps[i]
			if h.done || step >= caps[i] {
				continue
			}
			live = true
			prev := vocab.StartID
			if len(h.syms) > 0 {
				prev = h.syms[len(h.syms)-1]
			}
			res := s.Step(states[i], prev)
			states[i] = res.State

			id := bestSymbol(res.Probs)
			p := float64(res.Probs[id])
			if p < minCandidateProb {
				p = minCandidateProb
			}
			h.logp += math.Log(p)
			h.steps++
			if id == vocab.StopID {
				h.done = true
				continue
			}
			h.syms = append(h.syms, id)
			h.probs = append(h.probs, p)
			h.aligns = append(h.aligns, alignPoint(res))
		}
		if !live {
			break
		}
	}

	elapsed := time.Since(start)
	out := make([]*Corrected, len(hyps))
	for i, h := range hyps {
		out[i] = h.result(voc)
		out[i].Elapsed = elapsed
	}
	return out, nil
}
