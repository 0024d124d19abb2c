package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ocrtools/corasv/internal/config"
)

func TestReadConfidences(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "conf.txt")
	if err := os.WriteFile(path, []byte("0.9 0.75 1\n\n0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := readConfidences(path)
	if err != nil {
		t.Fatalf("readConfidences: %v", err)
	}
	want := [][]float64{{0.9, 0.75, 1}, {}, {0.5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("readConfidences=%v, want %v", got, want)
	}

	bad := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(bad, []byte("0.9 high\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readConfidences(bad); err == nil {
		t.Error("readConfidences accepted a non-numeric entry")
	}
}

func TestSegmentAndJoin(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level config.TextEquivLevel
		line  string
		want  []string
	}{
		{config.LevelLine, "the quick fox", []string{"the quick fox"}},
		{config.LevelLine, "", nil},
		{config.LevelWord, "the  quick fox", []string{"the", "quick", "fox"}},
		{config.LevelGlyph, "ab c", []string{"a", "b", " ", "c"}},
	}
	for _, tc := range cases {
		got := segment(tc.line, tc.level)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("segment(%q, %s)=%v, want %v", tc.line, tc.level, got, tc.want)
			continue
		}
		if len(got) == 0 {
			continue
		}
		joined := join(got, tc.level)
		switch tc.level {
		case config.LevelWord:
			if joined != "the quick fox" {
				t.Errorf("join word level = %q", joined)
			}
		default:
			if joined != tc.line {
				t.Errorf("join(%v, %s)=%q, want %q", got, tc.level, joined, tc.line)
			}
		}
	}
}
