package probe

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/codecbench/internal/media"
)

// ffprobe JSON for an MP4 with one AVC video stream, one AAC audio stream
// and a timed-metadata stream that must be ignored.
const sampleMP4 = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "profile": "High",
      "pix_fmt": "yuv420p",
      "width": 1920,
      "height": 1080,
      "avg_frame_rate": "25/1",
      "bit_rate": "4000000",
      "duration": "10.000000",
      "extradata": "\n00000000: 0164 001f ffe1 001b 6764 001f acd9 4050  .d......gd....@P\n00000010: 0102                                     ..\n"
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "sample_rate": "44100",
      "channels": 2,
      "channel_layout": "stereo",
      "bit_rate": "128000",
      "duration": "10.005333"
    },
    {
      "index": 2,
      "codec_name": "bin_data",
      "codec_type": "data"
    }
  ],
  "format": {
    "filename": "clip.mp4",
    "nb_streams": 3,
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
    "duration": "10.010000",
    "size": "5242880",
    "bit_rate": "4190000"
  }
}`

const samplePackets = `{
  "packets": [
    { "stream_index": 0, "pts_time": "0.000000", "pos": "417", "size": "417", "flags": "K__" },
    { "stream_index": 0, "pts_time": "0.026122", "pos": "834", "size": "418", "flags": "K__" },
    { "stream_index": 0, "pts_time": "0.052245", "pos": "N/A", "size": "417", "flags": "___" }
  ]
}`

func TestParseJSON_Streams(t *testing.T) {
	pr, err := ParseJSON([]byte(sampleMP4))
	require.NoError(t, err)

	require.Len(t, pr.Streams, 2, "data stream must be dropped")
	assert.Equal(t, "clip.mp4", pr.Format.Filename)
	assert.Equal(t, int64(10010000), pr.DurationUs())

	v := pr.Video()
	require.NotNil(t, v)
	assert.Equal(t, media.MimeAVC, v.Mime())
	assert.Equal(t, 1920, v.Width)
	assert.Equal(t, 1080, v.Height)
	assert.InDelta(t, 25.0, v.FrameRate, 0.001)
	assert.Equal(t, int64(4000000), v.BitRate)
	assert.Len(t, v.Extradata, 18)
	assert.Equal(t, []byte{0x01, 0x64, 0x00, 0x1f}, v.Extradata[:4])

	a := pr.Audio()
	require.NotNil(t, a)
	assert.Equal(t, media.MimeAAC, a.Mime())
	assert.Equal(t, 44100, a.SampleRate)
	assert.Equal(t, 2, a.Channels)
	assert.Nil(t, a.Extradata)
}

func TestStream_MediaFormat(t *testing.T) {
	pr, err := ParseJSON([]byte(sampleMP4))
	require.NoError(t, err)

	f := pr.Video().MediaFormat()
	assert.Equal(t, media.MimeAVC, f.Mime)
	assert.Equal(t, "yuv420p", f.ColorFormat)
	assert.Equal(t, int64(10000000), f.DurationUs)
	assert.True(t, f.IsVideo())
}

func TestParseJSON_Invalid(t *testing.T) {
	_, err := ParseJSON([]byte("{not json"))
	assert.Error(t, err)
}

func TestParsePackets(t *testing.T) {
	pkts, err := ParsePackets([]byte(samplePackets))
	require.NoError(t, err)
	require.Len(t, pkts, 3)

	assert.Equal(t, Packet{StreamIndex: 0, PTS: 0, Pos: 417, Size: 417, Key: true}, pkts[0])
	assert.Equal(t, int64(26122), pkts[1].PTS)
	assert.Equal(t, int64(-1), pkts[2].Pos)
	assert.False(t, pkts[2].Key)
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"25/1", 25},
		{"30000/1001", 29.97},
		{"0/0", 0},
		{"24", 24},
		{"", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, parseRate(tt.in), 0.01, tt.in)
	}
}

func TestParseHexDump_Malformed(t *testing.T) {
	assert.Nil(t, parseHexDump("00000000: zz"))
	assert.Nil(t, parseHexDump(""))
}

func TestProber_DefaultBinary(t *testing.T) {
	assert.Equal(t, "ffprobe", New("").bin())
	assert.Equal(t, "/opt/ffprobe", New("/opt/ffprobe").bin())
}

func TestProbe_MissingFile(t *testing.T) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not available")
	}
	_, err := New("").Probe(context.Background(), "/nonexistent/clip.mp4")
	assert.Error(t, err)
}
