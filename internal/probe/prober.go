package probe

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Prober runs an ffprobe binary.
type Prober struct {
	Path string // ffprobe executable; "ffprobe" when empty.
}

// New returns a Prober for the given executable.
func New(path string) *Prober {
	return &Prober{Path: path}
}

func (p *Prober) bin() string {
	if p == nil || p.Path == "" {
		return "ffprobe"
	}
	return p.Path
}

// Probe runs a single ffprobe JSON call against path and returns the
// parsed stream and format information.
func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	out, err := p.run(ctx,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams", "-show_data",
		path,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "ffprobe %q", path)
	}
	return ParseJSON(out)
}

// Packets lists every packet of every stream in path, in file order.
func (p *Prober) Packets(ctx context.Context, path string) ([]Packet, error) {
	out, err := p.run(ctx,
		"-v", "error",
		"-print_format", "json",
		"-show_entries", "packet=stream_index,pts_time,pos,size,flags",
		path,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "ffprobe packets %q", path)
	}
	return ParsePackets(out)
}

func (p *Prober) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.bin(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Wrap(err, msg)
		}
		return nil, err
	}
	return out, nil
}

// ParseJSON converts raw ffprobe stream/format JSON into a ProbeResult.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*ProbeResult, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse ffprobe JSON")
	}
	return buildResult(&raw), nil
}

// ParsePackets converts ffprobe packet JSON into packets.
func ParsePackets(data []byte) ([]Packet, error) {
	var raw struct {
		Packets []ffprobePacket `json:"packets"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse ffprobe packet JSON")
	}
	pkts := make([]Packet, 0, len(raw.Packets))
	for _, rp := range raw.Packets {
		pos := int64(-1)
		if rp.Pos != "" && rp.Pos != "N/A" {
			pos = parseInt64(rp.Pos)
		}
		pkts = append(pkts, Packet{
			StreamIndex: rp.StreamIndex,
			PTS:         int64(math.Round(parseFloat(rp.PTSTime) * 1e6)),
			Pos:         pos,
			Size:        parseInt(rp.Size),
			Key:         strings.HasPrefix(rp.Flags, "K"),
		})
	}
	return pkts, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename       string `json:"filename"`
	NbStreams      int    `json:"nb_streams"`
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
	Duration       string `json:"duration"`
	Size           string `json:"size"`
	BitRate        string `json:"bit_rate"`
}

type ffprobeStream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"`
	Profile       string `json:"profile"`
	PixFmt        string `json:"pix_fmt"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	AvgFrameRate  string `json:"avg_frame_rate"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	ChannelLayout string `json:"channel_layout"`
	BitRate       string `json:"bit_rate"`
	Duration      string `json:"duration"`
	Extradata     string `json:"extradata"`
}

type ffprobePacket struct {
	StreamIndex int    `json:"stream_index"`
	PTSTime     string `json:"pts_time"`
	Pos         string `json:"pos"`
	Size        string `json:"size"`
	Flags       string `json:"flags"`
}

// --- Conversion from wire types to domain types ---

func buildResult(raw *ffprobeOutput) *ProbeResult {
	pr := &ProbeResult{
		Format: FormatInfo{
			Filename:       raw.Format.Filename,
			NbStreams:      raw.Format.NbStreams,
			FormatName:     raw.Format.FormatName,
			FormatLongName: raw.Format.FormatLongName,
			Duration:       parseFloat(raw.Format.Duration),
			Size:           parseInt64(raw.Format.Size),
			BitRate:        parseInt64(raw.Format.BitRate),
		},
	}
	for i := range raw.Streams {
		s := &raw.Streams[i]
		if s.CodecType != "video" && s.CodecType != "audio" {
			continue
		}
		pr.Streams = append(pr.Streams, Stream{
			Index:         s.Index,
			Type:          s.CodecType,
			Codec:         s.CodecName,
			Profile:       s.Profile,
			PixFmt:        s.PixFmt,
			Width:         s.Width,
			Height:        s.Height,
			FrameRate:     parseRate(s.AvgFrameRate),
			SampleRate:    parseInt(s.SampleRate),
			Channels:      s.Channels,
			ChannelLayout: s.ChannelLayout,
			BitRate:       parseInt64(s.BitRate),
			Duration:      parseFloat(s.Duration),
			Extradata:     parseHexDump(s.Extradata),
		})
	}
	return pr
}

// parseHexDump decodes ffprobe's -show_data layout:
//
//	00000000: 0164 001f ffe1 001b 6764 001f acd9 4050  .d......gd....@P
func parseHexDump(s string) []byte {
	var out []byte
	for _, line := range strings.Split(s, "\n") {
		colon := strings.Index(line, ":")
		if colon < 0 {
			continue
		}
		body := line[colon+1:]
		// Hex columns end at the double space before the ASCII gutter.
		if end := strings.Index(body, "  "); end >= 0 {
			body = body[:end]
		}
		b, err := hex.DecodeString(strings.ReplaceAll(strings.TrimSpace(body), " ", ""))
		if err != nil {
			return nil
		}
		out = append(out, b...)
	}
	return out
}

// --- Numeric parsing helpers (ffprobe returns numbers as strings) ---

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// parseRate turns "25/1" or "30000/1001" into frames per second.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return parseFloat(s)
	}
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return parseFloat(num) / d
}
