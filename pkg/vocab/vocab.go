// Package vocab provides the bidirectional mapping between text symbols
// (runes) and the dense integer ids used by the correction model.
//
// Ids 0–2 are reserved: 0 marks padding and underspecified input (the "gap"
// left behind when the recognizer rejected a glyph), 1 is the start-of-sequence
// marker and 2 the end-of-sequence marker. Regular symbols are assigned ids
// from 3 upwards in the order they were added when the model was trained.
//
// A Vocabulary is immutable after construction and safe for unlimited
// concurrent readers.
package vocab

import (
	"errors"
	"fmt"
)

// Reserved ids shared between model training and inference.
const (
	PadID   = 0 // padding / underspecified input (gap)
	StartID = 1 // start-of-sequence
	StopID  = 2 // end-of-sequence
)

// NumReserved is the first id available to regular symbols.
const NumReserved = 3

// Gap is the placeholder rune for upstream tokens without any text content
// (OCR rejection). It must never be part of the trained symbol set; encoding
// it always yields [PadID].
const Gap rune = '\a'

// ErrUnknownSymbol is reported when a symbol has no id and gap fallback is
// disabled.
var ErrUnknownSymbol = errors.New("vocab: unknown symbol")

// Vocabulary maps runes to dense ids and back.
type Vocabulary struct {
	symbols []rune // index = id; entries below NumReserved are placeholders
	ids     map[rune]int
}

// New builds a Vocabulary from the regular symbol list. The first symbol
// receives id [NumReserved]. Duplicate symbols and the [Gap] rune are
// rejected.
func New(symbols []rune) (*Vocabulary, error) {
	v := &Vocabulary{
		symbols: make([]rune, NumReserved, NumReserved+len(symbols)),
		ids:     make(map[rune]int, len(symbols)),
	}
	for _, r := range symbols {
		if r == Gap {
			return nil, fmt.Errorf("vocab: gap rune %q must stay unmapped", r)
		}
		if _, ok := v.ids[r]; ok {
			return nil, fmt.Errorf("vocab: duplicate symbol %q", r)
		}
		v.ids[r] = len(v.symbols)
		v.symbols = append(v.symbols, r)
	}
	return v, nil
}

// Size returns the total id space, reserved ids included. The model's output
// distribution has exactly Size entries.
func (v *Vocabulary) Size() int { return len(v.symbols) }

// Symbols returns the regular symbols in id order (ids NumReserved..Size-1).
// The returned slice is a copy.
func (v *Vocabulary) Symbols() []rune {
	out := make([]rune, len(v.symbols)-NumReserved)
	copy(out, v.symbols[NumReserved:])
	return out
}

// ID returns the id for r and whether r is a known symbol.
func (v *Vocabulary) ID(r rune) (int, bool) {
	id, ok := v.ids[r]
	return id, ok
}

// Symbol returns the rune for id. Reserved and out-of-range ids report ok=false.
func (v *Vocabulary) Symbol(id int) (rune, bool) {
	if id < NumReserved || id >= len(v.symbols) {
		return 0, false
	}
	return v.symbols[id], true
}

// Encode maps line to a sequence of ids. Unknown symbols (including [Gap])
// become [PadID] when gapFallback is true; otherwise Encode fails with an
// error wrapping [ErrUnknownSymbol].
func (v *Vocabulary) Encode(line string, gapFallback bool) ([]int, error) {
	out := make([]int, 0, len(line))
	for _, r := range line {
		id, ok := v.ids[r]
		if !ok {
			if !gapFallback {
				return nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, r)
			}
			id = PadID
		}
		out = append(out, id)
	}
	return out, nil
}

// Decode maps ids back to a string. Reserved and out-of-range ids are
// skipped, so decoding an id stream that still carries start/stop markers is
// safe.
func (v *Vocabulary) Decode(ids []int) string {
	out := make([]rune, 0, len(ids))
	for _, id := range ids {
		if r, ok := v.Symbol(id); ok {
			out = append(out, r)
		}
	}
	return string(out)
}
