package align

import "fmt"

// Op is one edit operation of an alignment.
type Op uint8

const (
	OpMatch Op = iota
	OpSub
	OpIns
	OpDel
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpMatch:
		return "match"
	case OpSub:
		return "substitute"
	case OpIns:
		return "insert"
	case OpDel:
		return "delete"
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Edit is one step of an alignment. Source is the reference symbol consumed
// (empty for insertions), Target the hypothesis symbol produced (empty for
// deletions). Concatenating all Source fields reproduces the reference and
// all Target fields the hypothesis.
type Edit struct {
	Op     Op
	Source string
	Target string
}

// Result is the alignment of one sequence pair.
type Result struct {
	// Distance is the number of non-match edits.
	Distance int

	// Rate is Distance normalized by the reference length (floored at 1).
	Rate float64

	// Edits is the minimum-cost edit sequence transforming the reference
	// into the hypothesis.
	Edits []Edit
}

// DefaultMaxCells bounds the O(m·n) alignment table. Pairs above the bound
// fail with [ErrInvalidInput] instead of being silently truncated.
const DefaultMaxCells = 10_000_000

// alignRunes computes the minimum-cost alignment from src to tgt under unit
// costs, where two symbols match iff their keys are equal. The backtrace
// breaks cost ties deterministically preferring match > substitution >
// insertion > deletion.
func alignRunes(src, tgt []rune, key func(rune) string) (int, []Edit) {
	m, n := len(src), len(tgt)

	srcKeys := make([]string, m)
	for i, r := range src {
		srcKeys[i] = key(r)
	}
	tgtKeys := make([]string, n)
	for j, r := range tgt {
		tgtKeys[j] = key(r)
	}

	// d is the (m+1)×(n+1) cost table, row-major.
	cols := n + 1
	d := make([]int, (m+1)*cols)
	for j := 0; j <= n; j++ {
		d[j] = j
	}
	for i := 1; i <= m; i++ {
		d[i*cols] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if srcKeys[i-1] == tgtKeys[j-1] {
				cost = 0
			}
			best := d[(i-1)*cols+j-1] + cost
			if ins := d[i*cols+j-1] + 1; ins < best {
				best = ins
			}
			if del := d[(i-1)*cols+j] + 1; del < best {
				best = del
			}
			d[i*cols+j] = best
		}
	}

	edits := make([]Edit, 0, max(m, n))
	i, j := m, n
	for i > 0 || j > 0 {
		cur := d[i*cols+j]
		switch {
		case i > 0 && j > 0 && srcKeys[i-1] == tgtKeys[j-1] && cur == d[(i-1)*cols+j-1]:
			edits = append(edits, Edit{OpMatch, string(src[i-1]), string(tgt[j-1])})
			i--
			j--
		case i > 0 && j > 0 && cur == d[(i-1)*cols+j-1]+1:
			edits = append(edits, Edit{OpSub, string(src[i-1]), string(tgt[j-1])})
			i--
			j--
		case j > 0 && cur == d[i*cols+j-1]+1:
			edits = append(edits, Edit{OpIns, "", string(tgt[j-1])})
			j--
		default:
			edits = append(edits, Edit{OpDel, string(src[i-1]), ""})
			i--
		}
	}

	// Reverse into source order.
	for lo, hi := 0, len(edits)-1; lo < hi; lo, hi = lo+1, hi-1 {
		edits[lo], edits[hi] = edits[hi], edits[lo]
	}
	return d[m*cols+n], edits
}
