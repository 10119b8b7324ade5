package naming

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAsset(t *testing.T) {
	cases := []struct {
		name string
		file string
		want Asset
		mime string
	}{
		{
			name: "hevc mkv",
			file: "crowd_1920x1080_25fps_4000kbps_h265.mkv",
			want: Asset{
				File: "crowd_1920x1080_25fps_4000kbps_h265.mkv", Ext: "mkv", Kind: KindVideo,
				Clip: "crowd", Codec: "h265", Width: 1920, Height: 1080, FrameRate: 25, BitrateKbps: 4000,
			},
			mime: "video/hevc",
		},
		{
			name: "h263 3gp",
			file: "/assets/crowd_352x288_25fps_6000kbps_h263.3gp",
			want: Asset{
				File: "crowd_352x288_25fps_6000kbps_h263.3gp", Ext: "3gp", Kind: KindVideo,
				Clip: "crowd", Codec: "h263", Width: 352, Height: 288, FrameRate: 25, BitrateKbps: 6000,
			},
			mime: "video/3gpp",
		},
		{
			name: "short video form without units",
			file: "crowd_1920x1080_25_4000_vp9.webm",
			want: Asset{
				File: "crowd_1920x1080_25_4000_vp9.webm", Ext: "webm", Kind: KindVideo,
				Clip: "crowd", Codec: "vp9", Width: 1920, Height: 1080, FrameRate: 25, BitrateKbps: 4000,
			},
			mime: "video/x-vnd.on2.vp9",
		},
		{
			name: "aac mp4",
			file: "bbb_44100hz_2ch_128kbps_aac_30sec.mp4",
			want: Asset{
				File: "bbb_44100hz_2ch_128kbps_aac_30sec.mp4", Ext: "mp4", Kind: KindAudio,
				Clip: "bbb", Codec: "aac", SampleRate: 44100, Channels: 2, BitrateKbps: 128, Seconds: 30,
			},
			mime: "audio/mp4a-latm",
		},
		{
			name: "amr-nb 3gp",
			file: "bbb_8000hz_1ch_8kbps_amrnb_30sec.3gp",
			want: Asset{
				File: "bbb_8000hz_1ch_8kbps_amrnb_30sec.3gp", Ext: "3gp", Kind: KindAudio,
				Clip: "bbb", Codec: "amrnb", SampleRate: 8000, Channels: 1, BitrateKbps: 8, Seconds: 30,
			},
			mime: "audio/3gpp",
		},
		{
			name: "raw fixture",
			file: "decode_lr.yuv",
			want: Asset{File: "decode_lr.yuv", Ext: "yuv", Kind: KindRaw, Clip: "decode_lr"},
		},
		{
			name: "unknown",
			file: "Holiday Movie.MKV",
			want: Asset{File: "Holiday Movie.MKV", Ext: "mkv", Kind: KindUnknown, Clip: "Holiday Movie"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseAsset(tc.file)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.mime, got.Mime())
		})
	}
}

func TestRulesOrder(t *testing.T) {
	names := make([]string, 0, len(Rules))
	for _, r := range Rules {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"video", "audio", "raw-fixture"}, names)
}

func TestBitrateBps(t *testing.T) {
	assert.Equal(t, 4000000, ParseAsset("crowd_1920x1080_25fps_4000kbps_vp8.webm").BitrateBps())
}

func TestReferences(t *testing.T) {
	assert.Equal(t, "decode_lr.yuv_176x144_600000bps", VideoReference("decode_lr.yuv", 176, 144, 600000))
	assert.Equal(t, "decode_audio.raw_48000hz_2ch_128000bps", AudioReference("decode_audio.raw", 48000, 2, 128000))
}

func TestCodecLabel(t *testing.T) {
	assert.Equal(t, "default", CodecLabel(""))
	assert.Equal(t, "libx264", CodecLabel("libx264"))
}

func TestCapturePath(t *testing.T) {
	got := CapturePath("/out", "decode", "clip.mp4", "", "sync", "raw")
	assert.Equal(t, filepath.Join("/out", "decode", "clip.mp4.default.sync.raw"), got)

	got = CapturePath("/out", "encode", "ref", "vendor/codec", "async", "mkv")
	assert.Equal(t, filepath.Join("/out", "encode", "ref.vendor_codec.async.mkv"), got)
}
