// Package align computes minimum-cost alignments between recognized and
// reference text under configurable equivalence metrics, and aggregates the
// resulting edits into error rates and ranked confusion tables.
package align

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ErrInvalidInput marks sequences the engine refuses: text that is not valid
// UTF-8 under a normalizing metric, or alignments whose table would exceed
// the configured safety bound.
var ErrInvalidInput = errors.New("align: invalid input")

// Metric selects the symbol equivalence scheme used during alignment.
type Metric string

const (
	// Levenshtein matches symbols only when identical.
	Levenshtein Metric = "Levenshtein"

	// NFC matches symbols whose canonical NFC-normalized forms are equal,
	// so e.g. a precomposed umlaut equals its combining-sequence spelling.
	NFC Metric = "NFC"

	// HistoricLatin additionally treats a closed set of historic orthography
	// variants (long s, r rotunda, u/v and i/j interchange, dash variants)
	// as zero-cost matches on top of NFC equivalence.
	HistoricLatin Metric = "historic_latin"
)

// IsValid reports whether m is a recognised metric.
func (m Metric) IsValid() bool {
	switch m {
	case Levenshtein, NFC, HistoricLatin:
		return true
	}
	return false
}

// historicEquiv maps each historic variant to the canonical symbol of its
// equivalence class. The list is closed; extensions come from
// [LoadEquivalences].
var historicEquiv = map[rune]rune{
	'ſ': 's', // long s
	'ꝛ': 'r', // r rotunda
	'ʒ': 'z', // ezh-shaped z
	'ı': 'i', // dotless i
	'j': 'i', // i/j interchange
	'J': 'I',
	'v': 'u', // u/v interchange
	'V': 'U',
	'⸗': '-', // double oblique hyphen
	'‒': '-',
	'–': '-',
	'—': '-',
	'=': '-', // line-end hyphen in early prints
}

// keyFunc returns the per-symbol canonicalization for m, optionally extended
// by extra equivalences (variant → canonical). Two symbols match during
// alignment iff their keys are equal.
func (m Metric) keyFunc(extra map[rune]rune) func(rune) string {
	switch m {
	case NFC:
		return func(r rune) string { return norm.NFC.String(string(r)) }
	case HistoricLatin:
		return func(r rune) string {
			if c, ok := extra[r]; ok {
				r = c
			}
			if c, ok := historicEquiv[r]; ok {
				r = c
			}
			return norm.NFC.String(string(r))
		}
	default:
		return func(r rune) string { return string(r) }
	}
}

// LoadEquivalences reads additional equivalence classes for the
// historic-orthography metric from a YAML file. Each class is a list of
// single-rune strings whose first entry is the canonical symbol:
//
//   - ["s", "ſ", "ẜ"]
//   - ["r", "ꝛ"]
func LoadEquivalences(path string) (map[rune]rune, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("align: read equivalences: %w", err)
	}
	var classes [][]string
	if err := yaml.Unmarshal(data, &classes); err != nil {
		return nil, fmt.Errorf("align: parse equivalences %q: %w", path, err)
	}
	out := make(map[rune]rune)
	for i, class := range classes {
		if len(class) < 2 {
			return nil, fmt.Errorf("align: equivalence class %d needs a canonical symbol and at least one variant", i)
		}
		canonical, err := singleRune(class[0])
		if err != nil {
			return nil, fmt.Errorf("align: equivalence class %d: %w", i, err)
		}
		for _, variant := range class[1:] {
			v, err := singleRune(variant)
			if err != nil {
				return nil, fmt.Errorf("align: equivalence class %d: %w", i, err)
			}
			out[v] = canonical
		}
	}
	return out, nil
}

func singleRune(s string) (rune, error) {
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("entry %q is not a single symbol", s)
	}
	return runes[0], nil
}
