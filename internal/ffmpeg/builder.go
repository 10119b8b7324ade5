package ffmpeg

import (
	"strconv"

	"github.com/backmassage/codecbench/internal/media"
)

// captureMuxers names the stream written to fd 3 per output mime, with
// the file extension used for captures.
var captureMuxers = map[string]struct{ muxer, ext string }{
	media.MimeRawVideo: {"rawvideo", "yuv"},
	media.MimeRawAudio: {"s16le", "raw"},
	media.MimeAVC:      {"h264", "h264"},
	media.MimeHEVC:     {"hevc", "hevc"},
	media.MimeVP8:      {"ivf", "ivf"},
	media.MimeVP9:      {"ivf", "ivf"},
	media.MimeAV1:      {"ivf", "ivf"},
	media.MimeMPEG4:    {"m4v", "m4v"},
	media.MimeH263:     {"h263", "h263"},
	media.MimeAAC:      {"adts", "aac"},
	media.MimeAMRNB:    {"amr", "amr"},
	media.MimeAMRWB:    {"amr", "awb"},
	media.MimeFLAC:     {"flac", "flac"},
	media.MimeOpus:     {"ogg", "opus"},
	media.MimeVorbis:   {"ogg", "ogg"},
}

// CaptureExt is the file extension for captured output of mime.
func CaptureExt(mime string) string {
	if m, ok := captureMuxers[mime]; ok {
		return m.ext
	}
	return "nut"
}

func captureMuxer(mime string) string {
	if m, ok := captureMuxers[mime]; ok {
		return m.muxer
	}
	return "nut"
}

// DefaultPixelFormat is the raw video layout used when a stream does not
// name one of the supported layouts.
const DefaultPixelFormat = "yuv420p"

// rawPixelFormats are the 8-bit 4:2:0 layouts raw video may use. All of
// them occupy w*h*3/2 bytes per picture.
var rawPixelFormats = map[string]bool{
	"yuv420p": true,
	"nv12":    true,
	"nv21":    true,
}

// PixelFormat returns name when it is a supported raw layout and
// DefaultPixelFormat otherwise.
func PixelFormat(name string) string {
	if rawPixelFormats[name] {
		return name
	}
	return DefaultPixelFormat
}

// decodeSpec describes one decode run.
type decodeSpec struct {
	Input   []string // Demuxer options for stdin.
	Video   bool
	Decoder string // Forced decoder; empty lets ffmpeg choose.
	PixFmt  string // Raw video layout; empty means DefaultPixelFormat.
	Capture bool
}

// encodeSpec describes one encode run.
type encodeSpec struct {
	Input   []string
	Target  media.Format
	Encoder string
	Capture bool
}

// buildDecode constructs the argument slice for a decode run. Output is
// always raw: 4:2:0 video in s.PixFmt or signed 16-bit PCM.
func buildDecode(bin string, verbose bool, s decodeSpec) []string {
	args := preamble(bin, verbose)

	// --- Input ---
	if s.Decoder != "" {
		args = append(args, streamFlag("-c", s.Video), s.Decoder)
	}
	args = append(args, s.Input...)
	args = append(args, "-i", "pipe:0", "-map", "0:0")

	// --- Raw output ---
	outMime := media.MimeRawAudio
	if s.Video {
		outMime = media.MimeRawVideo
		args = append(args, "-c:v", "rawvideo", "-pix_fmt", PixelFormat(s.PixFmt))
	} else {
		args = append(args, "-c:a", "pcm_s16le")
	}

	return appendOutput(args, outMime, s.Capture)
}

// buildEncode constructs the argument slice for an encode run.
func buildEncode(bin string, verbose bool, s encodeSpec) []string {
	args := preamble(bin, verbose)
	video := s.Target.IsVideo()

	// --- Input ---
	args = append(args, s.Input...)
	args = append(args, "-i", "pipe:0", "-map", "0:0")

	// --- Encoder ---
	args = append(args, streamFlag("-c", video), s.Encoder)
	if s.Target.BitRate > 0 && s.Target.Mime != media.MimeFLAC {
		args = append(args, streamFlag("-b", video), strconv.Itoa(s.Target.BitRate))
	}
	if video {
		if s.Target.KeyInterval > 0 {
			fps := int(s.Target.FrameRate)
			if fps <= 0 {
				fps = media.DefaultFrameRate
			}
			args = append(args, "-g", strconv.Itoa(s.Target.KeyInterval*fps))
		}
		if s.Target.Profile > 0 {
			args = append(args, "-profile:v", strconv.Itoa(s.Target.Profile))
		}
		if s.Target.Level > 0 {
			args = append(args, "-level", strconv.Itoa(s.Target.Level))
		}
	} else {
		if s.Target.SampleRate > 0 {
			args = append(args, "-ar", strconv.Itoa(s.Target.SampleRate))
		}
		if s.Target.Channels > 0 {
			args = append(args, "-ac", strconv.Itoa(s.Target.Channels))
		}
	}

	return appendOutput(args, s.Target.Mime, s.Capture)
}

func preamble(bin string, verbose bool) []string {
	args := make([]string, 0, 40)
	args = append(args, bin, "-hide_banner", "-nostdin", "-y")
	if verbose {
		args = append(args, "-loglevel", "info")
	} else {
		args = append(args, "-loglevel", "error")
	}
	return args
}

// appendOutput adds the framecrc report on stdout and, with capture, a tee
// slave writing the stream itself to fd 3.
func appendOutput(args []string, mime string, capture bool) []string {
	args = append(args, "-flush_packets", "1")
	if !capture {
		return append(args, "-f", "framecrc", "pipe:1")
	}
	return append(args, "-f", "tee", "[f=framecrc]pipe:1|[f="+captureMuxer(mime)+"]pipe:3")
}

func streamFlag(flag string, video bool) string {
	if video {
		return flag + ":v"
	}
	return flag + ":a"
}
