package extractor

import (
	"io"
	"strings"

	"github.com/at-wat/ebml-go"
	"github.com/at-wat/ebml-go/webm"
	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/media"
)

// Matroska codec IDs and the mime types they carry.
var matroskaCodecs = map[string]string{
	"V_MPEG4/ISO/AVC":  media.MimeAVC,
	"V_MPEGH/ISO/HEVC": media.MimeHEVC,
	"V_VP8":            media.MimeVP8,
	"V_VP9":            media.MimeVP9,
	"V_AV1":            media.MimeAV1,
	"V_MPEG2":          media.MimeMPEG2,
	"V_MPEG4/ISO/ASP":  media.MimeMPEG4,
	"V_MPEG4/ISO/SP":   media.MimeMPEG4,
	"A_AAC":            media.MimeAAC,
	"A_MPEG/L3":        media.MimeMP3,
	"A_VORBIS":         media.MimeVorbis,
	"A_OPUS":           media.MimeOpus,
	"A_FLAC":           media.MimeFLAC,
}

// MatroskaCodecID returns the Matroska codec ID for mime, or "".
func MatroskaCodecID(mime string) string {
	for id, m := range matroskaCodecs {
		// AAC and MPEG-4 video have profile-specific aliases; keep the
		// generic one.
		if m == mime && id != "V_MPEG4/ISO/SP" {
			return id
		}
	}
	return ""
}

func matroskaMime(codecID string) string {
	if strings.HasPrefix(codecID, "A_AAC") {
		return media.MimeAAC
	}
	return matroskaCodecs[codecID]
}

const (
	mkvTrackVideo = 1
	mkvTrackAudio = 2

	defaultTimecodeScale = 1000000 // Nanoseconds per cluster tick.
)

type matroskaFile struct {
	Header  webm.EBMLHeader `ebml:"EBML"`
	Segment webm.Segment    `ebml:"Segment"`
}

// loadMatroska decodes the whole segment and lays out blocks per track.
// Payloads are kept in memory; offsets count bytes within each track.
func loadMatroska(r io.Reader) (*table, error) {
	var mkv matroskaFile
	if err := ebml.Unmarshal(r, &mkv, ebml.WithIgnoreUnknown(true)); err != nil {
		return nil, errors.Wrap(err, "parse matroska")
	}
	seg := &mkv.Segment

	scale := seg.Info.TimecodeScale
	if scale == 0 {
		scale = defaultTimecodeScale
	}
	duration := int64(seg.Info.Duration * float64(scale) / 1000)

	var tracks []track
	index := map[uint64]int{}
	for _, te := range seg.Tracks.TrackEntry {
		if te.TrackType != mkvTrackVideo && te.TrackType != mkvTrackAudio {
			continue
		}
		mime := matroskaMime(te.CodecID)
		if mime == "" {
			return nil, errors.Errorf("unsupported codec %s on track %d", te.CodecID, te.TrackNumber)
		}
		f := media.Format{Mime: mime, CodecPrivate: te.CodecPrivate, DurationUs: duration}
		if te.Video != nil {
			f.Width, f.Height = int(te.Video.PixelWidth), int(te.Video.PixelHeight)
		}
		if te.Audio != nil {
			f.SampleRate, f.Channels = int(te.Audio.SamplingFrequency), int(te.Audio.Channels)
		}
		if te.DefaultDuration > 0 && f.IsVideo() {
			f.FrameRate = 1e9 / float64(te.DefaultDuration)
		}
		index[te.TrackNumber] = len(tracks)
		tracks = append(tracks, track{format: f})
	}
	if len(tracks) == 0 {
		return nil, errors.New("no audio or video tracks")
	}

	offsets := make([]int64, len(tracks))
	add := func(clusterTC uint64, b ebml.Block, key bool) {
		ti, ok := index[b.TrackNumber]
		if !ok {
			return
		}
		pts := (int64(clusterTC) + int64(b.Timecode)) * int64(scale) / 1000
		var flags media.Flag
		if key {
			flags = media.FlagKeyFrame
		}
		// Laced blocks share one timestamp.
		for _, data := range b.Data {
			tracks[ti].samples = append(tracks[ti].samples, sample{
				offset: offsets[ti],
				size:   len(data),
				pts:    pts,
				flags:  flags,
				data:   data,
			})
			offsets[ti] += int64(len(data))
		}
	}

	for _, c := range seg.Cluster {
		for _, b := range c.SimpleBlock {
			add(c.Timecode, b, b.Keyframe || tracks[index[b.TrackNumber]].format.IsAudio())
		}
		for _, bg := range c.BlockGroup {
			// Blocks without a ReferenceBlock are independent.
			add(c.Timecode, bg.Block, bg.ReferenceBlock == 0)
		}
	}
	return newTable(tracks, duration), nil
}
