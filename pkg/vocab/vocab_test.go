package vocab_test

import (
	"errors"
	"testing"

	"github.com/ocrtools/corasv/pkg/vocab"
)

func TestReservedIDs(t *testing.T) {
	t.Parallel()

	v, err := vocab.New([]rune("abc"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if v.Size() != vocab.NumReserved+3 {
		t.Errorf("Size=%d, want %d", v.Size(), vocab.NumReserved+3)
	}
	if id, ok := v.ID('a'); !ok || id != vocab.NumReserved {
		t.Errorf("ID('a')=%d,%v, want %d,true", id, ok, vocab.NumReserved)
	}
	for _, id := range []int{vocab.PadID, vocab.StartID, vocab.StopID} {
		if _, ok := v.Symbol(id); ok {
			t.Errorf("Symbol(%d) resolved, reserved ids must not decode", id)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	v, err := vocab.New([]rune("abcdefghijklmnopqrstuvwxyz äöüß"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	line := "süße väter"
	ids, err := v.Encode(line, false)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if got := v.Decode(ids); got != line {
		t.Errorf("Decode(Encode(%q))=%q", line, got)
	}
}

func TestEncodeUnknownSymbol(t *testing.T) {
	t.Parallel()

	v, err := vocab.New([]rune("abc"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := v.Encode("abx", false); !errors.Is(err, vocab.ErrUnknownSymbol) {
		t.Errorf("Encode without fallback: err=%v, want ErrUnknownSymbol", err)
	}

	ids, err := v.Encode("abx", true)
	if err != nil {
		t.Fatalf("Encode with gap fallback returned error: %v", err)
	}
	if ids[2] != vocab.PadID {
		t.Errorf("unknown symbol encoded as %d, want PadID", ids[2])
	}
	// The gap placeholder itself always maps to the underspecified id.
	ids, err = v.Encode(string(vocab.Gap), true)
	if err != nil || ids[0] != vocab.PadID {
		t.Errorf("Encode(Gap)=%v,%v, want [PadID]", ids, err)
	}
}

func TestNewRejectsDuplicatesAndGap(t *testing.T) {
	t.Parallel()

	if _, err := vocab.New([]rune("aa")); err == nil {
		t.Error("New accepted a duplicate symbol")
	}
	if _, err := vocab.New([]rune{'a', vocab.Gap}); err == nil {
		t.Error("New accepted the gap rune")
	}
}

func TestDecodeSkipsReservedAndOutOfRange(t *testing.T) {
	t.Parallel()

	v, err := vocab.New([]rune("ab"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ids := []int{vocab.StartID, vocab.NumReserved, vocab.PadID, vocab.NumReserved + 1, vocab.StopID, 99}
	if got := v.Decode(ids); got != "ab" {
		t.Errorf("Decode=%q, want %q", got, "ab")
	}
}
