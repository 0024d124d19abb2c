// Command corasv applies a trained character-level correction model to noisy
// OCR text and measures text quality against ground truth.
//
// Usage:
//
//	corasv correct -config config.yaml -in ocr.txt -out corrected.txt
//	corasv evaluate -config config.yaml -gt gt.txt -ocr ocr.txt
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ocrtools/corasv/internal/config"
	"github.com/ocrtools/corasv/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: corasv <correct|evaluate> [flags]")
		return 2
	}
	mode := os.Args[1]

	fs := flag.NewFlagSet("corasv "+mode, flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration file")
	inPath := fs.String("in", "-", "recognized text, one sequence per line (- for stdin)")
	outPath := fs.String("out", "-", "where to write corrected text (- for stdout)")
	confPath := fs.String("conf", "", "optional recognizer confidences, space-separated floats per input line")
	gtPath := fs.String("gt", "", "ground-truth text for evaluation, one line per sequence")
	ocrPath := fs.String("ocr", "", "recognized or corrected text to evaluate")
	fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "corasv: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "corasv: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer shutdown(context.Background())

	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Server.MetricsAddr, mux); err != nil {
				slog.Error("metrics listener failed", "addr", cfg.Server.MetricsAddr, "err", err)
			}
		}()
		slog.Info("serving metrics", "addr", cfg.Server.MetricsAddr)
	}

	switch mode {
	case "correct":
		err = runCorrect(ctx, cfg, *inPath, *outPath, *confPath)
	case "evaluate":
		err = runEvaluate(ctx, cfg, *gtPath, *ocrPath)
	default:
		fmt.Fprintf(os.Stderr, "corasv: unknown mode %q (want correct or evaluate)\n", mode)
		return 2
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("interrupted")
			return 130
		}
		slog.Error(mode+" failed", "err", err)
		return 1
	}
	return 0
}

// version is stamped via -ldflags at release time.
var version = "dev"

func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
