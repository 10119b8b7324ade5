package ffmpeg

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/media"
)

// ErrNoCodec means no codec in the local ffmpeg build handles a mime.
var ErrNoCodec = errors.New("no codec available")

// Candidate implementations per mime, in preference order. Only those the
// local build reports are listed.
var (
	encoderCandidates = map[string][]string{
		media.MimeAVC:   {"libx264", "libopenh264"},
		media.MimeHEVC:  {"libx265"},
		media.MimeVP8:   {"libvpx"},
		media.MimeVP9:   {"libvpx-vp9"},
		media.MimeAV1:   {"libaom-av1", "libsvtav1"},
		media.MimeMPEG4: {"mpeg4", "libxvid"},
		media.MimeH263:  {"h263"},
		media.MimeAAC:   {"aac", "libfdk_aac"},
		media.MimeAMRNB: {"libopencore_amrnb"},
		media.MimeAMRWB: {"libvo_amrwbenc"},
		media.MimeFLAC:  {"flac"},
		media.MimeOpus:  {"libopus", "opus"},
	}

	decoderCandidates = map[string][]string{
		media.MimeAVC:    {"h264", "libopenh264"},
		media.MimeHEVC:   {"hevc"},
		media.MimeVP8:    {"vp8", "libvpx"},
		media.MimeVP9:    {"vp9", "libvpx-vp9"},
		media.MimeAV1:    {"libdav1d", "libaom-av1", "av1"},
		media.MimeMPEG2:  {"mpeg2video"},
		media.MimeMPEG4:  {"mpeg4"},
		media.MimeH263:   {"h263"},
		media.MimeAAC:    {"aac", "libfdk_aac"},
		media.MimeMP3:    {"mp3float", "mp3"},
		media.MimeAMRNB:  {"amrnb", "libopencore_amrnb"},
		media.MimeAMRWB:  {"amrwb", "libopencore_amrwb"},
		media.MimeVorbis: {"vorbis", "libvorbis"},
		media.MimeFLAC:   {"flac"},
		media.MimeOpus:   {"opus", "libopus"},
	}
)

// Android software codec names map onto the first local candidate of the
// same mime, so decode groups naming them stay runnable.
var (
	reAndroidCodec = regexp.MustCompile(`^c2\.android\.([a-z0-9]+)\.(decoder|encoder)$`)

	androidMimes = map[string]string{
		"avc":    media.MimeAVC,
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
)

// Logger is the subset of the harness logger the backend writes to.
type Logger interface {
	Warn(format string, args ...interface{})
	Debug(verbose bool, format string, args ...interface{})
}

// Options configures a Backend.
type Options struct {
	Path    string    // ffmpeg binary; "ffmpeg" when empty.
	Verbose bool      // Run ffmpeg at -loglevel info.
	Stderr  io.Writer // Live copy of ffmpeg stderr; nil keeps it private.
	Log     Logger    // Optional.
}

// Backend creates ffmpeg decoders and encoders and lists the codecs the
// local build provides.
type Backend struct {
	opts Options

	mu     sync.Mutex
	codecs map[bool]map[string]bool // encoder? -> codec name set
}

// New returns a Backend for opts.
func New(opts Options) *Backend {
	return &Backend{opts: opts, codecs: make(map[bool]map[string]bool)}
}

func (b *Backend) bin() string {
	if b.opts.Path != "" {
		return b.opts.Path
	}
	return "ffmpeg"
}

// NewDecoder returns an idle decoder.
func (b *Backend) NewDecoder() *Decoder { return &Decoder{runner: newRunner(b)} }

// NewEncoder returns an idle encoder.
func (b *Backend) NewEncoder() *Encoder { return &Encoder{runner: newRunner(b)} }

// Version returns the first line of "ffmpeg -version".
func (b *Backend) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, b.bin(), "-version").Output()
	if err != nil {
		return "", errors.Wrapf(err, "%s -version", b.bin())
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// ListCodecs returns the codecs for mime that the local build provides, in
// preference order. The build's codec list is queried once per direction.
func (b *Backend) ListCodecs(ctx context.Context, mime string, encoder bool) ([]string, error) {
	avail, err := b.available(ctx, encoder)
	if err != nil {
		return nil, err
	}
	candidates := decoderCandidates
	if encoder {
		candidates = encoderCandidates
	}
	var out []string
	for _, name := range candidates[mime] {
		if avail[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

// resolve maps a requested codec name to a local one. Empty stays empty
// for decoders (ffmpeg picks) and becomes the first candidate for encoders.
func (b *Backend) resolve(ctx context.Context, name, mime string, encoder bool) (string, error) {
	if name != "" {
		m := reAndroidCodec.FindStringSubmatch(name)
		if m == nil {
			return name, nil
		}
		if aliased, ok := androidMimes[m[1]]; ok {
			mime = aliased
		}
	} else if !encoder {
		return "", nil
	}

	list, err := b.ListCodecs(ctx, mime, encoder)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", errors.Wrapf(ErrNoCodec, "%s %s", mime, directionName(encoder))
	}
	if name != "" && b.opts.Log != nil {
		b.opts.Log.Debug(b.opts.Verbose, "Codec %s runs as %s", name, list[0])
	}
	return list[0], nil
}

func (b *Backend) available(ctx context.Context, encoder bool) (map[string]bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.codecs[encoder]; ok {
		return set, nil
	}

	flag := "-decoders"
	if encoder {
		flag = "-encoders"
	}
	out, err := exec.CommandContext(ctx, b.bin(), "-hide_banner", flag).Output()
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", b.bin(), flag)
	}
	set := parseCodecList(strings.NewReader(string(out)))
	b.codecs[encoder] = set
	return set, nil
}

// parseCodecList reads the table printed by -encoders or -decoders: a
// legend, a dashed separator, then "<flags> <name> <description>" rows.
func parseCodecList(r io.Reader) map[string]bool {
	set := make(map[string]bool)
	sc := bufio.NewScanner(r)
	inTable := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !inTable {
			inTable = strings.HasPrefix(line, "---")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) != 6 {
			continue
		}
		set[fields[1]] = true
	}
	return set
}

func directionName(encoder bool) string {
	if encoder {
		return "encoder"
	}
	return "decoder"
}
