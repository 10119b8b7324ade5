package probe

import "github.com/backmassage/codecbench/internal/media"

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename       string
	NbStreams      int
	FormatName     string
	FormatLongName string
	Duration       float64 // Seconds.
	Size           int64
	BitRate        int64
}

// Stream holds the parsed properties of one audio or video stream.
type Stream struct {
	Index         int
	Type          string // "video" or "audio".
	Codec         string
	Profile       string
	PixFmt        string
	Width         int
	Height        int
	FrameRate     float64
	SampleRate    int
	Channels      int
	ChannelLayout string
	BitRate       int64
	Duration      float64 // Seconds; zero when ffprobe reports none.
	Extradata     []byte
}

// Packet is one compressed sample as located by ffprobe.
type Packet struct {
	StreamIndex int
	PTS         int64 // Microseconds.
	Pos         int64 // Byte offset in the file; -1 when unknown.
	Size        int
	Key         bool
}

// ProbeResult is the parsed output of a single ffprobe JSON call. Streams
// other than audio and video are dropped.
type ProbeResult struct {
	Format  FormatInfo
	Streams []Stream
}

// codecMimes maps ffprobe codec names to media mime types.
var codecMimes = map[string]string{
	"h264":       media.MimeAVC,
	"hevc":       media.MimeHEVC,
	"vp8":        media.MimeVP8,
	"vp9":        media.MimeVP9,
	"av1":        media.MimeAV1,
	"mpeg2video": media.MimeMPEG2,
	"mpeg4":      media.MimeMPEG4,
	"h263":       media.MimeH263,
	"rawvideo":   media.MimeRawVideo,
	"aac":        media.MimeAAC,
	"mp3":        media.MimeMP3,
	"amr_nb":     media.MimeAMRNB,
	"amr_wb":     media.MimeAMRWB,
	"vorbis":     media.MimeVorbis,
	"flac":       media.MimeFLAC,
	"opus":       media.MimeOpus,
	"pcm_s16le":  media.MimeRawAudio,
}

// Mime returns the media mime type for the stream's codec, or "" when the
// codec is not one the harness knows.
func (s Stream) Mime() string { return codecMimes[s.Codec] }

// MediaFormat converts the stream to track format metadata.
func (s Stream) MediaFormat() media.Format {
	return media.Format{
		Mime:         s.Mime(),
		Width:        s.Width,
		Height:       s.Height,
		FrameRate:    s.FrameRate,
		SampleRate:   s.SampleRate,
		Channels:     s.Channels,
		BitRate:      int(s.BitRate),
		ColorFormat:  s.PixFmt,
		DurationUs:   int64(s.Duration * 1e6),
		CodecPrivate: s.Extradata,
	}
}

// Video returns the first video stream, or nil.
func (p *ProbeResult) Video() *Stream { return p.first("video") }

// Audio returns the first audio stream, or nil.
func (p *ProbeResult) Audio() *Stream { return p.first("audio") }

func (p *ProbeResult) first(kind string) *Stream {
	for i := range p.Streams {
		if p.Streams[i].Type == kind {
			return &p.Streams[i]
		}
	}
	return nil
}

// DurationUs is the container duration in microseconds.
func (p *ProbeResult) DurationUs() int64 {
	return int64(p.Format.Duration * 1e6)
}
