package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDirArg(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no trailing slash", "/media/assets", "/media/assets"},
		{"single trailing slash", "/media/assets/", "/media/assets"},
		{"multiple trailing slashes", "/media/assets///", "/media/assets"},
		{"root path", "/", "/"},
		{"relative path", "output", "output"},
		{"relative with slash", "output/", "output"},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDirArg(tt.in))
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2*time.Minute, cfg.CaseTimeout)
	assert.False(t, cfg.WriteOutput)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"color always", func(c *Config) { c.ColorMode = ColorAlways }, false},
		{"color unknown", func(c *Config) { c.ColorMode = "rainbow" }, true},
		{"json logs", func(c *Config) { c.LogFormat = LogJSON }, false},
		{"xml logs", func(c *Config) { c.LogFormat = "xml" }, true},
		{"zero timeout", func(c *Config) { c.CaseTimeout = 0 }, true},
		{"negative idle", func(c *Config) { c.IdleMaxCPU = -1 }, true},
		{"idle over 100", func(c *Config) { c.IdleMaxCPU = 101 }, true},
		{"good filter", func(c *Config) { c.RunFilter = `h26[45]` }, false},
		{"bad filter", func(c *Config) { c.RunFilter = `(` }, true},
		{"empty stats dir", func(c *Config) { c.StatsDir = "" }, true},
		{"empty ffmpeg", func(c *Config) { c.FFmpegPath = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNormalizesDirs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputDir = "/assets/"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/assets", cfg.InputDir)
}

func TestValidateFixtureDir(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.ValidateFixtureDir("/data/assets", "/data/assets/"))
	assert.NoError(t, cfg.ValidateFixtureDir("/data/assets", "/data/fixtures"))
}

func TestCaseMatcher(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.CaseMatcher())

	cfg.RunFilter = "opus"
	m := cfg.CaseMatcher()
	require.NotNil(t, m)
	assert.True(t, m.MatchString("decode/bbb_48000hz_2ch_100kbps_opus_30sec.webm/default/sync"))
}

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bench.yaml")
	yaml := "input_dir: /from/file\nstats_dir: /file/stats\ncase_timeout: 90s\nidle:\n  max_cpu: 20\n"
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o644))

	t.Setenv("CODECBENCH_STATS_DIR", "/env/stats")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", file, "--input-dir", "/from/flag", "--write-output"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.InputDir)
	assert.Equal(t, "/env/stats", cfg.StatsDir)
	assert.Equal(t, 90*time.Second, cfg.CaseTimeout)
	assert.Equal(t, 20.0, cfg.IdleMaxCPU)
	assert.True(t, cfg.WriteOutput)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}))

	_, err := Load(fs)
	assert.Error(t, err)
}
