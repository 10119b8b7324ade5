package matrix

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/codecbench/internal/media"
	"github.com/backmassage/codecbench/internal/naming"
)

func TestDecodeCases_Layout(t *testing.T) {
	cases := DecodeCases()
	require.Len(t, cases, 7*2+8*4)

	// Audio: sync block then async block.
	for i := 0; i < 7; i++ {
		assert.Equal(t, media.ModeSync, cases[i].Mode)
		assert.Equal(t, media.ModeAsync, cases[7+i].Mode)
		assert.Equal(t, cases[i].Input, cases[7+i].Input)
		assert.Empty(t, cases[i].Codec)
	}

	video := cases[14:]
	groups := []struct {
		mode  media.Mode
		named bool
	}{
		{media.ModeSync, false}, {media.ModeSync, true},
		{media.ModeAsync, false}, {media.ModeAsync, true},
	}
	for g, want := range groups {
		for _, c := range video[g*8 : (g+1)*8] {
			assert.Equal(t, want.mode, c.Mode, c.Name())
			assert.Equal(t, want.named, strings.HasPrefix(c.Codec, "c2.android."), c.Name())
		}
	}
}

func TestDecodeCases_Deterministic(t *testing.T) {
	assert.Equal(t, DecodeCases(), DecodeCases())
	assert.Equal(t, EncodeCases(), EncodeCases())

	cases := DecodeCases()
	cases[0].Input = "mutated.mp4"
	assert.Equal(t, AudioAAC, DecodeCases()[0].Input, "callers get a copy")
}

func TestDecodeCases_NamedCodecMatchesAsset(t *testing.T) {
	named := DecodeCases()[14+8 : 14+16]
	for i, c := range named {
		assert.Equal(t, ExtractCases()[i].Input, c.Input)
		assert.Regexp(t, `^c2\.android\.\w+\.decoder$`, c.Codec, c.Name())
	}
}

func TestEncodeCases(t *testing.T) {
	cases := EncodeCases()
	require.Len(t, cases, 11)

	aac := cases[0]
	assert.Equal(t, media.MimeAAC, aac.Mime)
	assert.Equal(t, FixtureAudio, aac.Input)
	assert.Equal(t, NA, aac.Width)
	assert.Equal(t, "decode_audio.raw_44100hz_2ch_128000bps", aac.Reference())

	lr := cases[9]
	assert.Equal(t, media.MimeMPEG4, lr.Mime)
	assert.Equal(t, "decode_lr.yuv_176x144_600000bps", lr.Reference())
	assert.Equal(t, 1, lr.FrameInterval)
	assert.Equal(t, NA, lr.SampleRate)

	for _, c := range cases {
		assert.Equal(t, KindEncode, c.Kind)
		assert.Empty(t, c.Codec, "encode codecs come from the registry")
	}
}

func TestCase_Format(t *testing.T) {
	f := EncodeCases()[5].Format()
	assert.Equal(t, media.MimeVP8, f.Mime)
	assert.Equal(t, 1920, f.Width)
	assert.Equal(t, 8000000, f.BitRate)
	assert.Equal(t, 1, f.KeyInterval)
	assert.Zero(t, f.Profile, "NA maps to unset")
	assert.Zero(t, f.SampleRate)
	assert.Equal(t, float64(media.DefaultFrameRate), f.FrameRate)

	a := EncodeCases()[1].Format()
	assert.Equal(t, 8000, a.SampleRate)
	assert.Equal(t, 1, a.Channels)
	assert.Zero(t, a.Width)
}

func TestCase_Name(t *testing.T) {
	tests := []struct {
		c    Case
		want string
	}{
		{Case{Kind: KindDecode, Input: "a.mp4", Mode: media.ModeAsync}, "decode/a.mp4/default/async"},
		{Case{Kind: KindDecode, Input: "a.mkv", Codec: "c2.android.hevc.decoder"}, "decode/a.mkv/c2.android.hevc.decoder/sync"},
		{EncodeCases()[10], "encode/decode_lr.yuv_176x144_600000bps/3gpp"},
		{Case{Kind: KindExtract, Input: "b.ts"}, "extract/b.ts"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.c.Name())
	}
}

func TestFilter(t *testing.T) {
	all := DecodeCases()
	assert.Equal(t, all, Filter(all, nil))

	hevc := Filter(all, regexp.MustCompile(`h265\.mkv/c2\.android`))
	require.Len(t, hevc, 2)
	assert.Equal(t, media.ModeSync, hevc[0].Mode)
	assert.Equal(t, media.ModeAsync, hevc[1].Mode)

	assert.Empty(t, Filter(all, regexp.MustCompile(`^encode/`)))
}

func TestExtractCasesAndFixtures(t *testing.T) {
	assert.Len(t, ExtractCases(), 8)
	fx := Fixtures()
	require.Len(t, fx, 3)
	assert.Equal(t, FixtureHR, fx[0].Output)
	assert.Equal(t, "bbb_48000hz_2ch_100kbps_opus_30sec.webm", fx[2].Source)
}

func TestAssetNamesDeclareCodec(t *testing.T) {
	for _, c := range append(DecodeCases(), ExtractCases()...) {
		assert.NotEmpty(t, naming.ParseAsset(c.Input).Mime(), c.Input)
	}
	for _, c := range ExtractCases() {
		assert.True(t, media.IsVideoMime(naming.ParseAsset(c.Input).Mime()), c.Input)
	}
}
