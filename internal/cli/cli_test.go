package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/codecbench/internal/matrix"
	"github.com/backmassage/codecbench/internal/media"
	"github.com/backmassage/codecbench/internal/naming"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test", "abc123")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--color", "never"))
	err := root.Execute()
	return out.String(), err
}

func TestList_Text(t *testing.T) {
	out, err := execute(t, "list", "encode")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2+len(matrix.EncodeCases()))
	assert.True(t, strings.HasPrefix(lines[0], "CASE"))
	assert.Contains(t, out, "encode/decode_lr.yuv_176x144_600000bps/mp4v-es")
	assert.Contains(t, out, "600 kbps")
	assert.Contains(t, out, "8.0 Mbps")
}

func TestList_RunFilterAndJSON(t *testing.T) {
	out, err := execute(t, "list", "decode", "--run", "/async$", "-o", "json")
	require.NoError(t, err)

	var got []caseJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotEmpty(t, got)
	for _, c := range got {
		assert.Equal(t, "decode", c.Kind)
		assert.Equal(t, "async", c.Mode)
	}
	assert.Len(t, got, len(matrix.DecodeCases())/2)
}

func TestList_RejectsUnknownSuite(t *testing.T) {
	_, err := execute(t, "list", "transcode")
	assert.Error(t, err)
}

func TestList_RejectsBadOutputFormat(t *testing.T) {
	_, err := execute(t, "list", "-o", "yaml")
	assert.Error(t, err)
}

func TestInvalidConfigFailsBeforeRunning(t *testing.T) {
	_, err := execute(t, "list", "--log-format", "xml")
	assert.Error(t, err)

	assert.Equal(t, 1, Execute("test", "abc123", []string{"list", "--case-timeout", "0s"}))
}

func TestResults_LocalTarget(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"Encoder.2.csv", "Decoder.1.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}

	out, err := execute(t, "results", dir)
	require.NoError(t, err)
	assert.Equal(t, "Decoder.1.csv\nEncoder.2.csv\n", out)

	out, err = execute(t, "results", "--publish", "local:"+dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Encoder.2.csv")
}

func TestResults_NeedsTarget(t *testing.T) {
	_, err := execute(t, "results")
	assert.Error(t, err)
}

func TestSelectCases(t *testing.T) {
	all, err := selectCases(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(matrix.DecodeCases())+len(matrix.EncodeCases())+len(matrix.ExtractCases()))
	assert.Equal(t, matrix.KindDecode, all[0].Kind)
	assert.Equal(t, matrix.KindExtract, all[len(all)-1].Kind)

	ext, err := selectCases([]string{"extract", "extract"})
	require.NoError(t, err)
	assert.Len(t, ext, 2*len(matrix.ExtractCases()))
}

func TestDescribeFormat(t *testing.T) {
	assert.Equal(t, "176x144 @ 25 fps", describeFormat(media.Format{Mime: media.MimeH263, Width: 176, Height: 144, FrameRate: 25}))
	assert.Equal(t, "1920x1080", describeFormat(media.Format{Mime: media.MimeHEVC, Width: 1920, Height: 1080}))
	assert.Equal(t, "48000 Hz, 2 ch", describeFormat(media.Format{Mime: media.MimeOpus, SampleRate: 48000, Channels: 2}))
}

func TestCaseMime(t *testing.T) {
	dec := matrix.DecodeCases()[0]
	assert.Equal(t, media.MimeAAC, caseMime(dec))

	enc := matrix.EncodeCases()[0]
	assert.Equal(t, enc.Mime, caseMime(enc))
}

func TestDeclaredTrackPresent(t *testing.T) {
	hevc := []trackSummary{{format: media.Format{Mime: media.MimeHEVC}}}

	assert.True(t, declaredTrackPresent(naming.ParseAsset("crowd_1920x1080_25fps_4000kbps_h265.mkv"), hevc))
	assert.False(t, declaredTrackPresent(naming.ParseAsset("crowd_1920x1080_25fps_4000kbps_vp9.webm"), hevc))
	assert.True(t, declaredTrackPresent(naming.ParseAsset("holiday.mkv"), nil))
}

func TestRun_ClosesLogWhenCommandFails(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "codecbench.log")
	root, a := newRoot("test", "abc123")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)

	code := run(root, a, []string{"probe", filepath.Join(t.TempDir(), "missing.mp4"),
		"--log-file", logFile, "--color", "never"})
	assert.Equal(t, 1, code)
	assert.Nil(t, a.log, "log closed although post-run hooks were skipped")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "missing.mp4")
}

func TestBackendOptions_VerboseMirrorsStderr(t *testing.T) {
	var errOut bytes.Buffer
	a := &app{errOut: &errOut}
	assert.Nil(t, a.backendOptions().Stderr)

	a.cfg.Verbose = true
	a.cfg.FFmpegPath = "/opt/ffmpeg/bin/ffmpeg"
	opts := a.backendOptions()
	assert.Same(t, &errOut, opts.Stderr)
	assert.True(t, opts.Verbose)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", opts.Path)
}

func TestHeadingShowsNominalBitrate(t *testing.T) {
	name := "crowd_1920x1080_25fps_4000kbps_h265.mkv"
	assert.Equal(t, name+" (10s, 4.0 Mbps nominal)", probeHeading(name, naming.ParseAsset(name), 10*time.Second))
	assert.Equal(t, "holiday.mkv (1.5s)", probeHeading("holiday.mkv", naming.ParseAsset("holiday.mkv"), 1500*time.Millisecond))
}

func TestRawFixtureFormat(t *testing.T) {
	hr, ok := rawFixtureFormat(filepath.Join("fixtures", matrix.FixtureHR))
	require.True(t, ok)
	assert.Equal(t, media.MimeRawVideo, hr.Mime)
	assert.Equal(t, 1920, hr.Width)
	assert.Equal(t, 1080, hr.Height)

	audio, ok := rawFixtureFormat(matrix.FixtureAudio)
	require.True(t, ok)
	assert.Equal(t, 48000, audio.SampleRate)
	assert.Equal(t, 2, audio.Channels)

	_, ok = rawFixtureFormat("clip.yuv")
	assert.False(t, ok)
}

func TestRawFixtureTracks(t *testing.T) {
	path := filepath.Join(t.TempDir(), matrix.FixtureLR)
	require.NoError(t, os.WriteFile(path, make([]byte, 2*media.RawVideoFrameSize(176, 144)), 0o644))

	out, err := execute(t, "probe", path)
	require.NoError(t, err)
	assert.Contains(t, out, media.MimeRawVideo)
	assert.Contains(t, out, "176x144 @ 25 fps")
}
