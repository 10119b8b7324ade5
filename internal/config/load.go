package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// CODECBENCH_INPUT_DIR.
const EnvPrefix = "CODECBENCH"

// flagKeys maps persistent flag names to their config keys.
var flagKeys = map[string]string{
	"input-dir":    "input_dir",
	"output-dir":   "output_dir",
	"fixture-dir":  "fixture_dir",
	"stats-dir":    "stats_dir",
	"ffmpeg":       "ffmpeg",
	"ffprobe":      "ffprobe",
	"write-output": "write_output",
	"case-timeout": "case_timeout",
	"run":          "run",
	"idle-max-cpu": "idle.max_cpu",
	"idle-timeout": "idle.timeout",
	"metrics-file": "metrics_file",
	"publish":      "publish.target",
	"gcp-project":  "publish.project",
	"verbose":      "verbose",
	"color":        "color",
	"log-format":   "log_format",
	"log-file":     "log_file",
}

// RegisterFlags defines the persistent flags on fs with defaults from
// [DefaultConfig].
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("config", "", "Config file (default: ./codecbench.yaml, $HOME/.codecbench, /etc/codecbench)")
	fs.String("input-dir", d.InputDir, "Directory containing benchmark assets")
	fs.String("output-dir", d.OutputDir, "Root directory for captured codec output")
	fs.String("fixture-dir", d.FixtureDir, "Directory for decoded encoder fixtures")
	fs.String("stats-dir", d.StatsDir, "Directory for session statistics files")
	fs.String("ffmpeg", d.FFmpegPath, "ffmpeg binary")
	fs.String("ffprobe", d.FFprobePath, "ffprobe binary")
	fs.Bool("write-output", d.WriteOutput, "Capture codec output to --output-dir")
	fs.Duration("case-timeout", d.CaseTimeout, "Wall-clock ceiling per case")
	fs.String("run", d.RunFilter, "Only run cases whose name matches this regexp")
	fs.Float64("idle-max-cpu", d.IdleMaxCPU, "Wait for CPU usage below this percent before each case (0 disables)")
	fs.Duration("idle-timeout", d.IdleTimeout, "Maximum wait for CPU idle")
	fs.String("metrics-file", d.MetricsFile, "Write Prometheus metrics to this textfile at session end")
	fs.String("publish", d.PublishTarget, "Copy the stats file to a directory or gs://bucket/prefix")
	fs.String("gcp-project", d.PublishProject, "GCP project for gs:// publish targets")
	fs.BoolP("verbose", "v", d.Verbose, "Debug logging")
	fs.String("color", string(d.ColorMode), "Color output: auto, always, never")
	fs.String("log-format", string(d.LogFormat), "Console log format: text, json")
	fs.String("log-file", d.LogFile, "Also append logs to this file")
}

// Load builds a Config from defaults, an optional YAML config file,
// CODECBENCH_* environment variables and fs (highest precedence). fs may be
// nil. The result is not validated.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, errors.Wrapf(err, "bind flag --%s", name)
				}
			}
		}
	}

	cfgFile := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			cfgFile = f.Value.String()
		}
	}
	if err := readConfigFile(v, cfgFile); err != nil {
		return Config{}, err
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("input_dir", d.InputDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("fixture_dir", d.FixtureDir)
	v.SetDefault("stats_dir", d.StatsDir)
	v.SetDefault("ffmpeg", d.FFmpegPath)
	v.SetDefault("ffprobe", d.FFprobePath)
	v.SetDefault("write_output", d.WriteOutput)
	v.SetDefault("case_timeout", d.CaseTimeout)
	v.SetDefault("run", d.RunFilter)
	v.SetDefault("idle.max_cpu", d.IdleMaxCPU)
	v.SetDefault("idle.timeout", d.IdleTimeout)
	v.SetDefault("metrics_file", d.MetricsFile)
	v.SetDefault("publish.target", d.PublishTarget)
	v.SetDefault("publish.project", d.PublishProject)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("color", string(d.ColorMode))
	v.SetDefault("log_format", string(d.LogFormat))
	v.SetDefault("log_file", d.LogFile)
}

// readConfigFile reads an explicit config file, or searches the default
// locations. A missing file in the default locations is not an error.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", path)
		}
		return nil
	}

	v.SetConfigName("codecbench")
	v.SetConfigType("yaml")
	for _, dir := range []string{".", "$HOME/.codecbench", "/etc/codecbench"} {
		v.AddConfigPath(os.ExpandEnv(dir))
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.Wrap(err, "read config")
		}
	}
	return nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		InputDir:       v.GetString("input_dir"),
		OutputDir:      v.GetString("output_dir"),
		FixtureDir:     v.GetString("fixture_dir"),
		StatsDir:       v.GetString("stats_dir"),
		FFmpegPath:     v.GetString("ffmpeg"),
		FFprobePath:    v.GetString("ffprobe"),
		WriteOutput:    v.GetBool("write_output"),
		CaseTimeout:    v.GetDuration("case_timeout"),
		RunFilter:      v.GetString("run"),
		IdleMaxCPU:     v.GetFloat64("idle.max_cpu"),
		IdleTimeout:    v.GetDuration("idle.timeout"),
		MetricsFile:    v.GetString("metrics_file"),
		PublishTarget:  v.GetString("publish.target"),
		PublishProject: v.GetString("publish.project"),
		Verbose:        v.GetBool("verbose"),
		ColorMode:      ColorMode(strings.ToLower(v.GetString("color"))),
		LogFormat:      LogFormat(strings.ToLower(v.GetString("log_format"))),
		LogFile:        v.GetString("log_file"),
	}
}
