package media

import "strings"

// Mime types, using the names the Android media stack reports so that matrix
// tables and statistics rows stay comparable across harnesses.
const (
	MimeAVC      = "video/avc"
	MimeHEVC     = "video/hevc"
	MimeVP8      = "video/x-vnd.on2.vp8"
	MimeVP9      = "video/x-vnd.on2.vp9"
	MimeAV1      = "video/av01"
	MimeMPEG2    = "video/mpeg2"
	MimeMPEG4    = "video/mp4v-es"
	MimeH263     = "video/3gpp"
	MimeRawVideo = "video/raw"

	MimeAAC      = "audio/mp4a-latm"
	MimeMP3      = "audio/mpeg"
	MimeAMRNB    = "audio/3gpp"
	MimeAMRWB    = "audio/amr-wb"
	MimeVorbis   = "audio/vorbis"
	MimeFLAC     = "audio/flac"
	MimeOpus     = "audio/opus"
	MimeRawAudio = "audio/raw"
)

// Raw fixture geometry shared by the encoder input path.
const (
	DefaultFrameRate    = 25
	AudioInputFrameSize = 4096
)

// Format is the metadata of one track, or the negotiated output of a codec.
// Zero values mean "unknown".
type Format struct {
	Mime         string
	Width        int
	Height       int
	FrameRate    float64
	SampleRate   int
	Channels     int
	BitRate      int
	ColorFormat  string // Pixel format name, e.g. "yuv420p".
	SampleFormat string // PCM sample format name, e.g. "s16".
	Profile      int
	Level        int
	KeyInterval  int   // Seconds between sync frames (encoder input).
	DurationUs   int64 // Track duration in microseconds.
	CodecPrivate []byte
}

// IsVideo reports whether the mime is a video type.
func (f Format) IsVideo() bool { return IsVideoMime(f.Mime) }

// IsAudio reports whether the mime is an audio type.
func (f Format) IsAudio() bool { return IsAudioMime(f.Mime) }

// IsVideoMime reports whether mime names a video type.
func IsVideoMime(mime string) bool { return strings.HasPrefix(mime, "video/") }

// IsAudioMime reports whether mime names an audio type.
func IsAudioMime(mime string) bool { return strings.HasPrefix(mime, "audio/") }

// RawVideoFrameSize is the byte size of one planar 4:2:0 frame.
func RawVideoFrameSize(width, height int) int {
	return width * height * 3 / 2
}
