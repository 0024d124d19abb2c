package align

import "sort"

// Confusion is one ranked confusion table entry: how often Source was
// recognized as Target. Source is empty for insertions, Target for deletions.
type Confusion struct {
	Source string
	Target string
	Count  int
}

// ConfusionTable counts (source, target) pairs over the non-match edits of
// an evaluation run. It is not safe for concurrent writers; parallel runs
// keep one table per worker and [Merge] them afterwards.
type ConfusionTable struct {
	counts map[confusionKey]int
	order  map[confusionKey]int
	next   int
}

type confusionKey struct {
	source string
	target string
}

// NewConfusionTable returns an empty table.
func NewConfusionTable() *ConfusionTable {
	return &ConfusionTable{
		counts: make(map[confusionKey]int),
		order:  make(map[confusionKey]int),
	}
}

// Add records one edit. Match edits are ignored.
func (t *ConfusionTable) Add(e Edit) {
	if e.Op == OpMatch {
		return
	}
	t.add(confusionKey{e.Source, e.Target}, 1)
}

// AddAll records every non-match edit of an alignment.
func (t *ConfusionTable) AddAll(edits []Edit) {
	for _, e := range edits {
		t.Add(e)
	}
}

func (t *ConfusionTable) add(k confusionKey, n int) {
	if _, seen := t.order[k]; !seen {
		t.order[k] = t.next
		t.next++
	}
	t.counts[k] += n
}

// Merge folds other into t. Pairs new to t keep their relative first-seen
// order from other, appended after t's own.
func (t *ConfusionTable) Merge(other *ConfusionTable) {
	keys := make([]confusionKey, 0, len(other.counts))
	for k := range other.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return other.order[keys[i]] < other.order[keys[j]]
	})
	for _, k := range keys {
		t.add(k, other.counts[k])
	}
}

// Len returns the number of distinct pairs.
func (t *ConfusionTable) Len() int { return len(t.counts) }

// Total returns the sum of all counts, which equals the number of non-match
// edits recorded.
func (t *ConfusionTable) Total() int {
	var sum int
	for _, n := range t.counts {
		sum += n
	}
	return sum
}

// TopK returns the k most frequent pairs, descending by count, ties broken
// by first-seen order. k ≤ 0 returns nil.
func (t *ConfusionTable) TopK(k int) []Confusion {
	if k <= 0 || len(t.counts) == 0 {
		return nil
	}
	keys := make([]confusionKey, 0, len(t.counts))
	for key := range t.counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := t.counts[keys[i]], t.counts[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return t.order[keys[i]] < t.order[keys[j]]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	out := make([]Confusion, len(keys))
	for i, key := range keys {
		out[i] = Confusion{Source: key.source, Target: key.target, Count: t.counts[key]}
	}
	return out
}
