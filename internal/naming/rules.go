package naming

import (
	"regexp"
	"strconv"
	"strings"
)

// ParseRule pairs a compiled regex with an extraction function. Rules are
// evaluated in order by [ParseAsset]; first match wins.
type ParseRule struct {
	Name    string
	Pattern *regexp.Regexp
	Extract func(matches []string) Asset
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// --- Compiled rule patterns (order matters) ---

var (
	reVideoAsset = regexp.MustCompile(
		`^([[:alnum:]]+)_([0-9]+)x([0-9]+)_([0-9]+)(?:fps)?_([0-9]+)(?:kbps)?_([[:alnum:]]+)$`)

	reAudioAsset = regexp.MustCompile(
		`^([[:alnum:]]+)_([0-9]+)hz_([0-9]+)ch_([0-9]+)kbps_([[:alnum:]]+)(?:_([0-9]+)sec)?$`)

	reRawFixture = regexp.MustCompile(
		`^(decode_[[:alnum:]_]+)$`)
)

// Rules is the ordered rule table used by [ParseAsset].
var Rules = []ParseRule{
	{
		Name:    "video",
		Pattern: reVideoAsset,
		Extract: func(m []string) Asset {
			return Asset{
				Kind:        KindVideo,
				Clip:        m[1],
				Width:       atoi(m[2]),
				Height:      atoi(m[3]),
				FrameRate:   atoi(m[4]),
				BitrateKbps: atoi(m[5]),
				Codec:       strings.ToLower(m[6]),
			}
		},
	},
	{
		Name:    "audio",
		Pattern: reAudioAsset,
		Extract: func(m []string) Asset {
			return Asset{
				Kind:        KindAudio,
				Clip:        m[1],
				SampleRate:  atoi(m[2]),
				Channels:    atoi(m[3]),
				BitrateKbps: atoi(m[4]),
				Codec:       strings.ToLower(m[5]),
				Seconds:     atoi(m[6]),
			}
		},
	},
	{
		Name:    "raw-fixture",
		Pattern: reRawFixture,
		Extract: func(m []string) Asset {
			return Asset{Kind: KindRaw, Clip: m[1]}
		},
	},
}
