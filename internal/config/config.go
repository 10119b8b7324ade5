// Package config holds runtime configuration: defaults, viper-backed loading
// from file, environment and flags, and validation.
package config

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// --- Enum types for validated string fields ---

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// LogFormat selects the console log encoding.
type LogFormat string

const (
	LogText LogFormat = "text" // Timestamped, leveled lines (default).
	LogJSON LogFormat = "json" // One JSON object per line.
)

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then overlaid by [Load] before being passed (by pointer) to packages that
// need it.
type Config struct {
	// Paths.
	InputDir   string // Benchmark assets. Default: ".".
	OutputDir  string // Output capture root. Default: "output".
	FixtureDir string // Decoded raw intermediates for the encode suite. Default: "fixtures".
	StatsDir   string // Session statistics files. Default: "stats".

	// Tools.
	FFmpegPath  string // Default: "ffmpeg".
	FFprobePath string // Default: "ffprobe".

	// Behavior.
	WriteOutput bool          // Capture decoded/encoded output to OutputDir.
	CaseTimeout time.Duration // Wall-clock ceiling per case. Default: 2m.
	RunFilter   string        // Regexp matched against case names; empty runs all.
	IdleMaxCPU  float64       // Wait until CPU usage (percent) drops below this before each case. 0 disables.
	IdleTimeout time.Duration // Give up waiting for idle after this long. Default: 30s.

	// Reporting.
	MetricsFile    string // Prometheus textfile written at session end. Optional.
	PublishTarget  string // Where to copy the stats file: a directory or gs://bucket/prefix. Optional.
	PublishProject string // GCP project for gs:// targets. Optional.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFormat LogFormat // Default: "text".
	LogFile   string    // Optional log file path.
}

// DefaultConfig returns a Config with all defaults. Used as the base before
// [Load] applies file, environment and flag overrides.
func DefaultConfig() Config {
	return Config{
		InputDir:    ".",
		OutputDir:   "output",
		FixtureDir:  "fixtures",
		StatsDir:    "stats",
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		WriteOutput: false,
		CaseTimeout: 2 * time.Minute,
		IdleMaxCPU:  0,
		IdleTimeout: 30 * time.Second,
		ColorMode:   ColorAuto,
		LogFormat:   LogText,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields, durations and the case filter, and normalizes
// directory arguments.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", c.ColorMode)
	}

	switch c.LogFormat {
	case LogText, LogJSON:
		// valid
	default:
		return errors.Errorf("invalid log format %q (use 'text' or 'json')", c.LogFormat)
	}

	if c.CaseTimeout <= 0 {
		return errors.New("case timeout must be positive")
	}
	if c.IdleMaxCPU < 0 || c.IdleMaxCPU > 100 {
		return errors.Errorf("idle CPU threshold %.1f out of range [0, 100]", c.IdleMaxCPU)
	}
	if c.RunFilter != "" {
		if _, err := regexp.Compile(c.RunFilter); err != nil {
			return errors.Wrap(err, "invalid --run filter")
		}
	}

	for _, d := range []*string{&c.InputDir, &c.OutputDir, &c.FixtureDir, &c.StatsDir} {
		*d = NormalizeDirArg(*d)
		if *d == "" {
			return errors.New("input, output, fixture and stats directories must not be empty")
		}
	}
	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return errors.New("ffmpeg and ffprobe paths must not be empty")
	}
	return nil
}

// ValidateFixtureDir ensures the resolved fixture directory is not the
// resolved input directory. Fixtures are deleted at session end, so sharing
// a directory with the assets would remove files the session does not own.
// Both arguments must be absolute, symlink-resolved paths.
func (c *Config) ValidateFixtureDir(inputAbs, fixtureAbs string) error {
	if filepath.Clean(inputAbs) == filepath.Clean(fixtureAbs) {
		return errors.New("fixture directory must differ from input directory")
	}
	return nil
}

// CaseMatcher compiles RunFilter. A nil matcher matches every case.
func (c *Config) CaseMatcher() *regexp.Regexp {
	if c.RunFilter == "" {
		return nil
	}
	return regexp.MustCompile(c.RunFilter)
}
