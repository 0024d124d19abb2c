// Package config provides the configuration schema, loader and validation
// for the corasv OCR post-correction tool.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// TextEquivLevel selects the granularity at which input files are cut into
// symbol sequences before correction. It changes what one "sequence" is, not
// the algorithm: "line" corrects whole lines, "word" corrects each
// whitespace-separated token separately, "glyph" each symbol separately.
type TextEquivLevel string

const (
	LevelLine  TextEquivLevel = "line"
	LevelWord  TextEquivLevel = "word"
	LevelGlyph TextEquivLevel = "glyph"
)

// IsValid reports whether t is a recognised granularity.
func (t TextEquivLevel) IsValid() bool {
	switch t {
	case LevelLine, LevelWord, LevelGlyph:
		return true
	}
	return false
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Model    ModelConfig    `yaml:"model"`
	Correct  CorrectConfig  `yaml:"correct"`
	Evaluate EvaluateConfig `yaml:"evaluate"`
}

// ServerConfig holds logging and telemetry settings.
type ServerConfig struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr, when non-empty, starts an HTTP listener serving
	// Prometheus metrics under /metrics (e.g., ":9090").
	MetricsAddr string `yaml:"metrics_addr"`
}

// ModelConfig locates the trained parameter bundle.
type ModelConfig struct {
	// Path is the filesystem location of the bundle.
	Path string `yaml:"path"`
}

// CorrectConfig holds the decoding parameters for correction runs.
type CorrectConfig struct {
	// TextEquivLevel selects the sequence granularity. Default: line.
	TextEquivLevel TextEquivLevel `yaml:"textequiv_level"`

	// RejectionThreshold is the minimum probability kept for the candidate
	// that copies the input symbol; 0 disables rejection (maximum recall),
	// 1 disables correction (maximum precision). Default: 0.5.
	RejectionThreshold *float64 `yaml:"rejection_threshold"`

	// RelativeBeamWidth prunes candidates below this fraction of the best
	// candidate's probability. Default: 0.2.
	RelativeBeamWidth *float64 `yaml:"relative_beam_width"`

	// FixedBeamWidth caps the number of tracked hypotheses. Default: 15.
	FixedBeamWidth *int `yaml:"fixed_beam_width"`

	// FastMode switches to batched greedy decoding (faster, lower quality).
	FastMode bool `yaml:"fast_mode"`

	// MaxLength caps the output length per sequence; 0 derives it from the
	// input length.
	MaxLength int `yaml:"max_length"`

	// GapFallback maps unknown symbols to the underspecified id instead of
	// failing the line. Default: true.
	GapFallback *bool `yaml:"gap_fallback"`

	// Workers bounds the number of lines corrected concurrently in beamed
	// mode. Default: number of CPUs.
	Workers int `yaml:"workers"`
}

// EvaluateConfig holds the measurement parameters for evaluation runs.
type EvaluateConfig struct {
	// Metric selects the equivalence scheme: Levenshtein, NFC or
	// historic_latin. Default: Levenshtein.
	Metric string `yaml:"metric"`

	// Confusion is the number of most frequent confusions to report;
	// 0 disables confusion collection.
	Confusion int `yaml:"confusion"`

	// EquivalencesFile optionally extends the historic-orthography
	// equivalence classes (YAML list of symbol classes).
	EquivalencesFile string `yaml:"equivalences_file"`

	// MaxTableCells bounds the O(m·n) alignment table; longer pairs are
	// rejected. 0 keeps the built-in default.
	MaxTableCells int `yaml:"max_table_cells"`

	// Workers bounds the number of pairs evaluated concurrently.
	// Default: number of CPUs.
	Workers int `yaml:"workers"`
}
