package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ocrtools/corasv/internal/config"
	"github.com/ocrtools/corasv/internal/observe"
	"github.com/ocrtools/corasv/pkg/align"
)

// runEvaluate aligns the recognized (or corrected) text against ground truth
// line by line and prints the aggregate report.
func runEvaluate(ctx context.Context, cfg *config.Config, gtPath, ocrPath string) error {
	if gtPath == "" || ocrPath == "" {
		return fmt.Errorf("evaluate needs both -gt and -ocr")
	}
	refs, err := readLines(gtPath)
	if err != nil {
		return err
	}
	hyps, err := readLines(ocrPath)
	if err != nil {
		return err
	}
	if len(refs) != len(hyps) {
		return fmt.Errorf("%s has %d lines but %s has %d", gtPath, len(refs), ocrPath, len(hyps))
	}

	opts := []align.EvaluatorOption{
		align.WithMetric(align.Metric(cfg.Evaluate.Metric)),
		align.WithMaxCells(cfg.Evaluate.MaxTableCells),
		align.WithEvalWorkers(cfg.Evaluate.Workers),
	}
	if cfg.Evaluate.EquivalencesFile != "" {
		eq, err := align.LoadEquivalences(cfg.Evaluate.EquivalencesFile)
		if err != nil {
			return err
		}
		opts = append(opts, align.WithEquivalences(eq))
	}
	evaluator, err := align.NewEvaluator(opts...)
	if err != nil {
		return err
	}

	pairs := make([]align.Pair, len(refs))
	for i := range refs {
		pairs[i] = align.Pair{Reference: refs[i], Hypothesis: hyps[i]}
	}
	run, err := evaluator.EvaluateLines(ctx, pairs)
	if err != nil {
		return err
	}

	met := observe.Default()
	for _, res := range run.Lines {
		met.RecordEvaluation(ctx, res.Rate, cfg.Evaluate.Metric)
	}

	slog.Info("evaluation finished",
		"metric", cfg.Evaluate.Metric,
		"pairs", len(pairs),
		"distance", run.Distance,
	)
	fmt.Printf("metric:          %s\n", cfg.Evaluate.Metric)
	fmt.Printf("lines:           %d\n", len(pairs))
	fmt.Printf("edits:           %d\n", run.Distance)
	fmt.Printf("reference chars: %d\n", run.RefLength)
	fmt.Printf("error rate:      %.4f (macro %.4f)\n", run.Rate, run.MeanRate)

	if k := cfg.Evaluate.Confusion; k > 0 {
		fmt.Printf("top %d confusions:\n", k)
		for _, c := range run.Confusion.TopK(k) {
			fmt.Printf("  %4d × %q -> %q\n", c.Count, c.Source, c.Target)
		}
	}
	return nil
}
