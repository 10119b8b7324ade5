package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/abema/go-mp4"
	"github.com/at-wat/ebml-go/webm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/codecbench/internal/media"
	"github.com/backmassage/codecbench/internal/probe"
)

// --- Sample table ---

func memTable() *table {
	return newTable([]track{{
		format: media.Format{Mime: media.MimeAAC, SampleRate: 44100, Channels: 2, DurationUs: 46439},
		samples: []sample{
			{offset: 0, size: 3, pts: 0, flags: media.FlagKeyFrame, data: []byte{1, 2, 3}},
			{offset: 3, size: 2, pts: 23219, flags: media.FlagKeyFrame, data: []byte{4, 5}},
		},
	}}, 50000)
}

func TestDrain_EndsWithEmptyEOSFrame(t *testing.T) {
	tb := memTable()
	frames, format, err := Drain(tb, 0)
	require.NoError(t, err)

	assert.Equal(t, media.MimeAAC, format.Mime)
	require.Len(t, frames, 3)
	assert.Equal(t, []byte{1, 2, 3}, frames[0].Data)
	assert.Equal(t, int64(23219), frames[1].PTS)

	eos := frames[2]
	assert.Equal(t, 0, eos.Size)
	assert.True(t, eos.Flags.Has(media.FlagEndOfStream))
	assert.Equal(t, int64(23219), eos.PTS)
	assert.Equal(t, int64(5), media.TotalBytes(frames))
}

func TestDrain_CopiesPayloads(t *testing.T) {
	tb := memTable()
	frames, _, err := Drain(tb, 0)
	require.NoError(t, err)
	frames[0].Data[0] = 99
	assert.Equal(t, byte(1), tb.tracks[0].samples[0].data[0])
}

func TestTable_SelectionRules(t *testing.T) {
	tb := memTable()

	assert.Equal(t, -1, tb.NextSample())
	assert.ErrorIs(t, tb.Err(), ErrNoTrackSelected)

	assert.Error(t, tb.SelectTrack(1))
	_, err := tb.Format(-1)
	assert.Error(t, err)

	require.NoError(t, tb.SelectTrack(0))
	assert.NoError(t, tb.Err())
	assert.Equal(t, int64(46439), tb.ClipDuration())

	tb.UnselectTrack(0)
	assert.Equal(t, int64(50000), tb.ClipDuration(), "falls back to container duration")
}

func TestTable_ReadsFromSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, []byte("abcdefgh"), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)

	tb := newTable([]track{{
		format:  media.Format{Mime: media.MimeMP3},
		samples: []sample{{offset: 2, size: 3}, {offset: 6, size: 4}},
	}}, 0)
	tb.src, tb.closer = f, f

	require.NoError(t, tb.SelectTrack(0))
	assert.Equal(t, 3, tb.NextSample())
	assert.Equal(t, []byte("cde"), tb.FrameBuffer())

	// Second sample runs past the end of the file.
	assert.Equal(t, -1, tb.NextSample())
	assert.Error(t, tb.Err())
	assert.True(t, tb.BufferInfo().Flags.Has(media.FlagEndOfStream))

	require.NoError(t, tb.Close())
	require.NoError(t, tb.Close())
}

// --- Raw fixtures ---

func TestSplitRaw(t *testing.T) {
	video := media.Format{Mime: media.MimeRawVideo, Width: 4, Height: 2, FrameRate: 25}
	audio := media.Format{Mime: media.MimeRawAudio, SampleRate: 8000, Channels: 1}

	tests := []struct {
		name      string
		format    media.Format
		total     int64
		wantN     int
		wantLast  int
		wantPTS1  int64
	}{
		{"video exact", video, 36, 3, 12, 40000},
		{"video short tail", video, 30, 3, 6, 40000},
		{"audio", audio, 5000, 2, 904, 512000},
		{"empty", audio, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := SplitRaw(tt.total, tt.format)
			require.Len(t, frames, tt.wantN)
			if tt.wantN == 0 {
				return
			}
			last := frames[len(frames)-1]
			assert.Equal(t, tt.wantLast, last.Size)
			assert.True(t, last.Flags.Has(media.FlagEndOfStream))
			assert.False(t, frames[0].Flags.Has(media.FlagEndOfStream))
			assert.Equal(t, tt.wantPTS1, frames[1].PTS)
			assert.Equal(t, tt.total, media.TotalBytes(frames))
		})
	}
}

func TestOpenRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decode_lr.yuv")
	data := make([]byte, 30)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	in, err := OpenRaw(path, media.Format{Mime: media.MimeRawVideo, Width: 4, Height: 2, FrameRate: 25})
	require.NoError(t, err)
	defer in.Close()
	require.Len(t, in.Frames, 3)
	for _, fr := range in.Frames {
		assert.Nil(t, fr.Data, "payloads stay on disk")
	}

	last := in.Frames[2]
	buf := make([]byte, last.Size)
	n, err := in.ReadAt(buf, last.Offset)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, data[24:], buf)

	empty := filepath.Join(t.TempDir(), "empty.yuv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = OpenRaw(empty, media.Format{Mime: media.MimeRawVideo, Width: 4, Height: 2})
	assert.Error(t, err)

	_, err = OpenRaw(filepath.Join(t.TempDir(), "missing.yuv"), media.Format{})
	assert.Error(t, err)
}

func TestOpen_RawNeedsFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decode_audio.raw")
	require.NoError(t, os.WriteFile(path, make([]byte, 5000), 0o644))

	_, err := Open(context.Background(), path)
	assert.Error(t, err)

	ex, err := Open(context.Background(), path,
		WithRawFormat(media.Format{Mime: media.MimeRawAudio, SampleRate: 48000, Channels: 2}))
	require.NoError(t, err)
	defer ex.Close()

	frames, _, err := Drain(ex, 0)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, 4096, frames[0].Size)
	assert.Equal(t, 904, frames[1].Size)
	assert.Equal(t, 0, frames[2].Size)
}

func TestOpen_MissingAndUnknown(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "clip.xyz")
	require.NoError(t, os.WriteFile(path, []byte{0}, 0o644))
	_, err = Open(context.Background(), path)
	assert.Error(t, err, "no prober configured")
}

// --- ffprobe packet tables ---

type fakeProber struct {
	result  *probe.ProbeResult
	packets []probe.Packet
}

func (f *fakeProber) Probe(context.Context, string) (*probe.ProbeResult, error) {
	return f.result, nil
}

func (f *fakeProber) Packets(context.Context, string) ([]probe.Packet, error) {
	return f.packets, nil
}

func TestOpen_PacketTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bbb_44100hz_2ch_128kbps_mp3_30sec.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3xxAAAABBBBB"), 0o644))

	fp := &fakeProber{
		result: &probe.ProbeResult{
			Format: probe.FormatInfo{Duration: 0.05},
			Streams: []probe.Stream{
				{Index: 0, Type: "audio", Codec: "mp3", SampleRate: 44100, Channels: 2},
			},
		},
		packets: []probe.Packet{
			{StreamIndex: 0, PTS: 0, Pos: 5, Size: 4, Key: true},
			{StreamIndex: 0, PTS: 26122, Pos: 9, Size: 5, Key: true},
			{StreamIndex: 1, PTS: 0, Pos: 0, Size: 1},
		},
	}
	ex, err := Open(context.Background(), path, WithProber(fp))
	require.NoError(t, err)
	defer ex.Close()

	require.Equal(t, 1, ex.TrackCount())
	frames, format, err := Drain(ex, 0)
	require.NoError(t, err)
	assert.Equal(t, media.MimeMP3, format.Mime)
	assert.Equal(t, int64(50000), format.DurationUs)
	require.Len(t, frames, 3)
	assert.Equal(t, []byte("AAAA"), frames[0].Data)
	assert.Equal(t, []byte("BBBBB"), frames[1].Data)
}

func TestOpen_PacketWithoutPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.amr")
	require.NoError(t, os.WriteFile(path, []byte("#!AMR\n"), 0o644))
	fp := &fakeProber{
		result:  &probe.ProbeResult{Streams: []probe.Stream{{Index: 0, Type: "audio", Codec: "amr_nb"}}},
		packets: []probe.Packet{{StreamIndex: 0, Pos: -1, Size: 13}},
	}
	_, err := Open(context.Background(), path, WithProber(fp))
	assert.Error(t, err)
}

// --- Matroska ---

func TestOpen_MatroskaRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.webm")
	f, err := os.Create(path)
	require.NoError(t, err)

	writers, err := webm.NewSimpleBlockWriter(f, []webm.TrackEntry{{
		Name:        "Audio",
		TrackNumber: 1,
		TrackUID:    1,
		CodecID:     "A_OPUS",
		TrackType:   2,
		Audio:       &webm.Audio{SamplingFrequency: 48000, Channels: 2},
	}})
	require.NoError(t, err)
	payloads := [][]byte{{0xfc, 1}, {0xfc, 2, 2}, {0xfc, 3, 3, 3}}
	for i, p := range payloads {
		_, err := writers[0].Write(true, int64(i*20), p)
		require.NoError(t, err)
	}
	require.NoError(t, writers[0].Close())

	ex, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer ex.Close()

	require.Equal(t, 1, ex.TrackCount())
	frames, format, err := Drain(ex, 0)
	require.NoError(t, err)
	assert.Equal(t, media.MimeOpus, format.Mime)
	assert.Equal(t, 48000, format.SampleRate)
	assert.Equal(t, 2, format.Channels)

	require.Len(t, frames, len(payloads)+1)
	for i, p := range payloads {
		assert.Equal(t, p, frames[i].Data)
		assert.Equal(t, int64(i*20000), frames[i].PTS)
		assert.True(t, frames[i].Flags.Has(media.FlagKeyFrame))
	}
}

func TestMatroskaCodecID(t *testing.T) {
	assert.Equal(t, "V_MPEGH/ISO/HEVC", MatroskaCodecID(media.MimeHEVC))
	assert.Equal(t, "V_MPEG4/ISO/ASP", MatroskaCodecID(media.MimeMPEG4))
	assert.Equal(t, "A_AAC", MatroskaCodecID(media.MimeAAC))
	assert.Equal(t, "", MatroskaCodecID(media.MimeAMRNB))
	assert.Equal(t, media.MimeAAC, matroskaMime("A_AAC/MPEG4/LC"))
}

// --- MP4 helpers ---

func TestMP4Samples_ChunkLayout(t *testing.T) {
	pt := &mp4.Track{
		Timescale: 1000,
		Samples: mp4.Samples{
			{Size: 10, TimeDelta: 40},
			{Size: 20, TimeDelta: 40, CompositionTimeOffset: 80},
			{Size: 30, TimeDelta: 40},
		},
		Chunks: mp4.Chunks{
			{DataOffset: 100, SamplesPerChunk: 2},
			{DataOffset: 500, SamplesPerChunk: 1},
		},
	}
	stss := &mp4.Stss{EntryCount: 1, SampleNumber: []uint32{1}}

	got := mp4Samples(pt, nil, stss)
	require.Len(t, got, 3)
	assert.Equal(t, sample{offset: 100, size: 10, pts: 0, flags: media.FlagKeyFrame}, got[0])
	assert.Equal(t, sample{offset: 110, size: 20, pts: 120000}, got[1])
	assert.Equal(t, sample{offset: 500, size: 30, pts: 80000}, got[2])

	// A constant stsz size overrides the empty per-sample sizes.
	got = mp4Samples(pt, &mp4.Stsz{SampleSize: 7}, nil)
	assert.Equal(t, int64(107), got[1].offset)
	assert.True(t, got[2].flags.Has(media.FlagKeyFrame), "no stss means every sample is a sync sample")
}

func TestOpusHead(t *testing.T) {
	dops := []byte{0, 2, 0x01, 0x38, 0x00, 0x00, 0xbb, 0x80, 0x00, 0x00, 0}
	head := opusHead(dops)
	require.Len(t, head, 19)
	assert.Equal(t, "OpusHead", string(head[:8]))
	assert.Equal(t, byte(2), head[9])
	assert.Equal(t, []byte{0x38, 0x01}, head[10:12], "pre-skip little-endian")
	assert.Equal(t, []byte{0x80, 0xbb, 0x00, 0x00}, head[12:16])
	assert.Nil(t, opusHead([]byte{0, 1}))
}

// --- MPEG-TS helpers ---

func TestTSFlags(t *testing.T) {
	avc := &track{format: media.Format{Mime: media.MimeAVC}}
	assert.True(t, tsFlags(avc, []byte{0, 0, 0, 1, 0x65, 0x88, 0x84}).Has(media.FlagKeyFrame))
	assert.False(t, tsFlags(avc, []byte{0, 0, 0, 1, 0x41, 0x9a, 0x02}).Has(media.FlagKeyFrame))

	hevc := &track{format: media.Format{Mime: media.MimeHEVC}}
	assert.True(t, tsFlags(hevc, []byte{0, 0, 0, 1, 0x26, 0x01, 0xaf}).Has(media.FlagKeyFrame))
	assert.False(t, tsFlags(hevc, []byte{0, 0, 0, 1, 0x02, 0x01, 0xd0}).Has(media.FlagKeyFrame))

	aac := &track{format: media.Format{Mime: media.MimeAAC}}
	assert.True(t, tsFlags(aac, []byte{0xff, 0xf1}).Has(media.FlagKeyFrame))
}
