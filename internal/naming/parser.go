package naming

import (
	"path/filepath"
	"strings"

	"github.com/backmassage/codecbench/internal/media"
)

// Kind classifies an asset by its parsed name.
type Kind string

const (
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
	KindRaw     Kind = "raw"
	KindUnknown Kind = "unknown"
)

// Asset holds the properties encoded in a benchmark asset filename.
// Fields that the name does not carry are zero.
type Asset struct {
	File        string // Base name with extension.
	Ext         string // Extension without dot, lowercased.
	Kind        Kind
	Clip        string
	Codec       string // Codec token from the name, e.g. "h265", "opus".
	Width       int
	Height      int
	FrameRate   int
	SampleRate  int
	Channels    int
	BitrateKbps int
	Seconds     int
}

// codecMimes maps the codec tokens used in asset names to mime types.
var codecMimes = map[string]string{
	"h264":   media.MimeAVC,
	"avc":    media.MimeAVC,
	"h265":   media.MimeHEVC,
	"hevc":   media.MimeHEVC,
	"vp8":    media.MimeVP8,
	"vp9":    media.MimeVP9,
	"av1":    media.MimeAV1,
	"mpeg2":  media.MimeMPEG2,
	"mpeg4":  media.MimeMPEG4,
	"h263":   media.MimeH263,
	"aac":    media.MimeAAC,
	"mp3":    media.MimeMP3,
	"amrnb":  media.MimeAMRNB,
	"amrwb":  media.MimeAMRWB,
	"vorbis": media.MimeVorbis,
	"flac":   media.MimeFLAC,
	"opus":   media.MimeOpus,
}

// ParseAsset parses an asset filename (a path is accepted; only the base
// name is used).
func ParseAsset(name string) Asset {
	file := filepath.Base(name)
	ext := filepath.Ext(file)
	base := strings.TrimSuffix(file, ext)

	for _, rule := range Rules {
		m := rule.Pattern.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		a := rule.Extract(m)
		a.File = file
		a.Ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		return a
	}
	return Asset{
		File: file,
		Ext:  strings.ToLower(strings.TrimPrefix(ext, ".")),
		Kind: KindUnknown,
		Clip: base,
	}
}

// Mime returns the mime type implied by the codec token, or "" when the
// token is not known.
func (a Asset) Mime() string {
	return codecMimes[a.Codec]
}

// BitrateBps returns the nominal bitrate in bits per second.
func (a Asset) BitrateBps() int {
	return a.BitrateKbps * 1000
}
