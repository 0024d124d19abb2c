package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/ocrtools/corasv/internal/config"
	"github.com/ocrtools/corasv/internal/observe"
	"github.com/ocrtools/corasv/pkg/model"
	"github.com/ocrtools/corasv/pkg/seq2seq"
)

// runCorrect loads the model bundle and corrects every input line at the
// configured textequiv level.
func runCorrect(ctx context.Context, cfg *config.Config, inPath, outPath, confPath string) error {
	if cfg.Model.Path == "" {
		return fmt.Errorf("model.path is not configured")
	}
	m, err := model.Load(cfg.Model.Path)
	if err != nil {
		return err
	}
	slog.Info("model loaded",
		"path", cfg.Model.Path,
		"vocab", m.Vocab.Size(),
		"hidden", m.HiddenDim,
		"window", m.Window,
	)

	lines, err := readLines(inPath)
	if err != nil {
		return err
	}

	var confs [][]float64
	if confPath != "" {
		confs, err = readConfidences(confPath)
		if err != nil {
			return err
		}
		if len(confs) != len(lines) {
			return fmt.Errorf("%s has %d lines but %s has %d", confPath, len(confs), inPath, len(lines))
		}
	}

	opts := cfg.Correct.SearchOptions()
	corrector := seq2seq.NewCorrector(seq2seq.Wrap(m),
		seq2seq.WithWorkers(cfg.Correct.Workers))
	met := observe.Default()
	mode := "beamed"
	if opts.FastMode {
		mode = "fast"
	}

	out, closeOut, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer closeOut()

	bar := progressbar.Default(int64(len(lines)), "correcting")
	w := bufio.NewWriter(out)
	for i, line := range lines {
		var lineConfs []float64
		if confs != nil {
			lineConfs = confs[i]
		}
		corrected, err := correctLine(ctx, corrector, line, lineConfs, cfg.Correct.TextEquivLevel, opts, met, mode)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, corrected); err != nil {
			return err
		}
		bar.Add(1)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return bar.Finish()
}

// correctLine cuts one input line into sequences per the textequiv level,
// decodes them as a batch, and joins the results back into a line. The
// line's confidences condition every sequence cut from it.
func correctLine(ctx context.Context, corrector *seq2seq.Corrector, line string, confs []float64, level config.TextEquivLevel, opts seq2seq.Options, met *observe.Metrics, mode string) (string, error) {
	sequences := segment(line, level)
	if len(sequences) == 0 {
		return line, nil
	}

	var batchConfs [][]float64
	if confs != nil {
		batchConfs = make([][]float64, len(sequences))
		for i := range batchConfs {
			batchConfs[i] = confs
		}
	}
	results, err := corrector.CorrectLinesWithConfidences(ctx, sequences, batchConfs, opts)
	if err != nil {
		return "", err
	}

	parts := make([]string, len(results))
	for i, res := range results {
		parts[i] = res.Text
		met.RecordCorrection(ctx, res.Elapsed, mode, res.Exhaustions)
		slog.Debug("corrected sequence",
			"input", sequences[i],
			"output", res.Text,
			"perplexity", res.Perplexity(),
		)
	}
	return join(parts, level), nil
}

// segment cuts a line into the sequences the model decodes: the whole line,
// its whitespace-separated words, or its individual symbols. Empty sequences
// are dropped.
func segment(line string, level config.TextEquivLevel) []string {
	switch level {
	case config.LevelWord:
		return strings.Fields(line)
	case config.LevelGlyph:
		parts := make([]string, 0, len(line))
		for _, r := range line {
			parts = append(parts, string(r))
		}
		return parts
	default:
		if line == "" {
			return nil
		}
		return []string{line}
	}
}

func join(parts []string, level config.TextEquivLevel) string {
	switch level {
	case config.LevelWord:
		return strings.Join(parts, " ")
	case config.LevelGlyph:
		return strings.Join(parts, "")
	default:
		return parts[0]
	}
}

func readLines(path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// readConfidences parses one space-separated list of per-symbol confidences
// per input line.
func readConfidences(path string) ([][]float64, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		vals := make([]float64, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: confidence %q: %w", path, i+1, f, err)
			}
			vals[j] = v
		}
		out[i] = vals
	}
	return out, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
