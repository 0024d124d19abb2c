package align_test

import (
	"testing"

	"github.com/ocrtools/corasv/pkg/align"
)

func TestConfusionTableCounts(t *testing.T) {
	t.Parallel()

	tab := align.NewConfusionTable()
	tab.AddAll([]align.Edit{
		{Op: align.OpMatch, Source: "a", Target: "a"},
		{Op: align.OpSub, Source: "e", Target: "c"},
		{Op: align.OpSub, Source: "e", Target: "c"},
		{Op: align.OpDel, Source: "u", Target: ""},
		{Op: align.OpIns, Source: "", Target: "x"},
	})
	if tab.Len() != 3 {
		t.Errorf("Len=%d, want 3", tab.Len())
	}
	if tab.Total() != 4 {
		t.Errorf("Total=%d, want 4 (matches not counted)", tab.Total())
	}
}

func TestConfusionTopK(t *testing.T) {
	t.Parallel()

	tab := align.NewConfusionTable()
	for i := 0; i < 3; i++ {
		tab.Add(align.Edit{Op: align.OpSub, Source: "e", Target: "c"})
	}
	tab.Add(align.Edit{Op: align.OpDel, Source: "u"})
	tab.Add(align.Edit{Op: align.OpSub, Source: "n", Target: "u"})
	tab.Add(align.Edit{Op: align.OpSub, Source: "n", Target: "u"})

	top := tab.TopK(2)
	if len(top) != 2 {
		t.Fatalf("TopK(2) returned %d entries", len(top))
	}
	if top[0].Source != "e" || top[0].Target != "c" || top[0].Count != 3 {
		t.Errorf("top[0]=%v, want e->c ×3", top[0])
	}
	if top[1].Source != "n" || top[1].Target != "u" || top[1].Count != 2 {
		t.Errorf("top[1]=%v, want n->u ×2", top[1])
	}

	// Equal counts keep first-seen order.
	tab.Add(align.Edit{Op: align.OpDel, Source: "u"})
	all := tab.TopK(10)
	if len(all) != 3 || all[2].Source != "n" {
		t.Errorf("tie ranking %v, want the u deletion before n->u", all)
	}

	if tab.TopK(0) != nil {
		t.Error("TopK(0) must return nil")
	}
}

func TestConfusionMerge(t *testing.T) {
	t.Parallel()

	a := align.NewConfusionTable()
	a.Add(align.Edit{Op: align.OpSub, Source: "e", Target: "c"})

	b := align.NewConfusionTable()
	b.Add(align.Edit{Op: align.OpSub, Source: "e", Target: "c"})
	b.Add(align.Edit{Op: align.OpDel, Source: "u"})

	a.Merge(b)
	if a.Total() != 3 || a.Len() != 2 {
		t.Errorf("after merge Total=%d Len=%d, want 3/2", a.Total(), a.Len())
	}
	top := a.TopK(2)
	if top[0].Count != 2 || top[0].Source != "e" {
		t.Errorf("top[0]=%v, want merged e->c ×2", top[0])
	}
}
