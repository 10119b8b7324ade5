// Package matrix holds the static test tables: decode, encode and extract
// cases in the order they run.
package matrix

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/backmassage/codecbench/internal/media"
	"github.com/backmassage/codecbench/internal/naming"
)

// NA marks a table field that does not apply to the case.
const NA = -1

// Kind is the suite a case belongs to.
type Kind int

const (
	KindDecode Kind = iota
	KindEncode
	KindExtract
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindEncode:
		return "encode"
	case KindExtract:
		return "extract"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Case is one row of a table. Encode fields are NA outside encode cases
// and for fields the target mime does not use.
type Case struct {
	Kind  Kind
	Input string     // Asset file name, relative to the input or fixture dir.
	Codec string     // Named codec; empty selects the default.
	Mode  media.Mode // Decode only. Encode cases fan out over all modes.

	Mime          string
	BitRate       int
	Width         int
	Height        int
	FrameInterval int // Seconds between key frames.
	Profile       int
	Level         int
	SampleRate    int
	Channels      int
}

// Name is the stable identifier used for --run filtering and log context.
func (c Case) Name() string {
	switch c.Kind {
	case KindDecode:
		return fmt.Sprintf("decode/%s/%s/%s", c.Input, naming.CodecLabel(c.Codec), c.Mode)
	case KindEncode:
		return fmt.Sprintf("encode/%s/%s", c.Reference(), mimeLabel(c.Mime))
	}
	return "extract/" + c.Input
}

// Reference is the file name column of the run's statistics rows.
func (c Case) Reference() string {
	if c.Kind != KindEncode {
		return c.Input
	}
	if media.IsVideoMime(c.Mime) {
		return naming.VideoReference(c.Input, c.Width, c.Height, c.BitRate)
	}
	return naming.AudioReference(c.Input, c.SampleRate, c.Channels, c.BitRate)
}

// Format is the encoder target described by an encode case. NA fields
// become zero, which the backend treats as unset.
func (c Case) Format() media.Format {
	f := media.Format{
		Mime:        c.Mime,
		BitRate:     set(c.BitRate),
		Profile:     set(c.Profile),
		Level:       set(c.Level),
		KeyInterval: set(c.FrameInterval),
	}
	if media.IsVideoMime(c.Mime) {
		f.Width = set(c.Width)
		f.Height = set(c.Height)
		f.FrameRate = media.DefaultFrameRate
		f.ColorFormat = "yuv420p"
	} else {
		f.SampleRate = set(c.SampleRate)
		f.Channels = set(c.Channels)
	}
	return f
}

func set(v int) int {
	if v == NA {
		return 0
	}
	return v
}

// mimeLabel is the subtype of a mime: "video/x-vnd.on2.vp8" -> "x-vnd.on2.vp8".
func mimeLabel(mime string) string {
	_, sub, ok := strings.Cut(mime, "/")
	if !ok {
		return mime
	}
	return sub
}

// Filter returns the cases whose Name matches re. A nil re keeps all.
func Filter(cases []Case, re *regexp.Regexp) []Case {
	if re == nil {
		return cases
	}
	var out []Case
	for _, c := range cases {
		if re.MatchString(c.Name()) {
			out = append(out, c)
		}
	}
	return out
}
