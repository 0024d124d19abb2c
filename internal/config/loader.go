package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ocrtools/corasv/pkg/align"
	"github.com/ocrtools/corasv/pkg/seq2seq"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with the documented defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Correct.TextEquivLevel == "" {
		cfg.Correct.TextEquivLevel = LevelLine
	}
	if cfg.Correct.RejectionThreshold == nil {
		v := seq2seq.DefaultRejectionThreshold
		cfg.Correct.RejectionThreshold = &v
	}
	if cfg.Correct.RelativeBeamWidth == nil {
		v := seq2seq.DefaultRelativeBeamWidth
		cfg.Correct.RelativeBeamWidth = &v
	}
	if cfg.Correct.FixedBeamWidth == nil {
		v := seq2seq.DefaultFixedBeamWidth
		cfg.Correct.FixedBeamWidth = &v
	}
	if cfg.Correct.GapFallback == nil {
		v := true
		cfg.Correct.GapFallback = &v
	}
	if cfg.Evaluate.Metric == "" {
		cfg.Evaluate.Metric = string(align.Levenshtein)
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if !cfg.Correct.TextEquivLevel.IsValid() {
		errs = append(errs, fmt.Errorf("correct.textequiv_level %q is invalid; valid values: line, word, glyph", cfg.Correct.TextEquivLevel))
	}
	if t := *cfg.Correct.RejectionThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("correct.rejection_threshold %g is out of range [0, 1]", t))
	}
	if w := *cfg.Correct.RelativeBeamWidth; w <= 0 {
		errs = append(errs, fmt.Errorf("correct.relative_beam_width %g must be positive", w))
	}
	if w := *cfg.Correct.FixedBeamWidth; w < 1 {
		errs = append(errs, fmt.Errorf("correct.fixed_beam_width %d must be at least 1", w))
	}
	if cfg.Correct.MaxLength < 0 {
		errs = append(errs, fmt.Errorf("correct.max_length %d must not be negative", cfg.Correct.MaxLength))
	}
	if cfg.Correct.Workers < 0 {
		errs = append(errs, fmt.Errorf("correct.workers %d must not be negative", cfg.Correct.Workers))
	}

	if !align.Metric(cfg.Evaluate.Metric).IsValid() {
		errs = append(errs, fmt.Errorf("evaluate.metric %q is invalid; valid values: %s, %s, %s",
			cfg.Evaluate.Metric, align.Levenshtein, align.NFC, align.HistoricLatin))
	}
	if cfg.Evaluate.Confusion < 0 {
		errs = append(errs, fmt.Errorf("evaluate.confusion %d must not be negative", cfg.Evaluate.Confusion))
	}
	if cfg.Evaluate.MaxTableCells < 0 {
		errs = append(errs, fmt.Errorf("evaluate.max_table_cells %d must not be negative", cfg.Evaluate.MaxTableCells))
	}
	if cfg.Evaluate.Workers < 0 {
		errs = append(errs, fmt.Errorf("evaluate.workers %d must not be negative", cfg.Evaluate.Workers))
	}

	return errors.Join(errs...)
}

// SearchOptions converts the correction section into decoder options.
func (c CorrectConfig) SearchOptions() seq2seq.Options {
	return seq2seq.Options{
		RejectionThreshold: *c.RejectionThreshold,
		RelativeBeamWidth:  *c.RelativeBeamWidth,
		FixedBeamWidth:     *c.FixedBeamWidth,
		FastMode:           c.FastMode,
		MaxLength:          c.MaxLength,
		GapFallback:        *c.GapFallback,
	}
}
