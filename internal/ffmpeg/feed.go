package ffmpeg

import (
	"io"
	"strconv"

	"github.com/at-wat/ebml-go/mkvcore"
	"github.com/at-wat/ebml-go/webm"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/extractor"
	"github.com/backmassage/codecbench/internal/media"
)

// ErrUnsupportedInput means no feed can carry the format to ffmpeg.
var ErrUnsupportedInput = errors.New("unsupported input format")

// inputFeed serialises frames onto ffmpeg's stdin.
type inputFeed interface {
	// InputArgs are the demuxer options placed before "-i pipe:0".
	InputArgs() []string
	Begin(w io.WriteCloser) error
	WriteFrame(fr media.Frame) error
	// End flushes and closes the stream.
	End() error
}

// Mimes whose Matroska mapping requires CodecPrivate.
var needsPrivate = map[string]bool{
	media.MimeAVC:    true,
	media.MimeHEVC:   true,
	media.MimeAAC:    true,
	media.MimeVorbis: true,
	media.MimeFLAC:   true,
}

// Elementary stream demuxers, with the header some of them expect.
var elementary = map[string]struct {
	demuxer string
	header  string
}{
	media.MimeAVC:   {"h264", ""},
	media.MimeHEVC:  {"hevc", ""},
	media.MimeAAC:   {"aac", ""},
	media.MimeMP3:   {"mp3", ""},
	media.MimeAMRNB: {"amr", "#!AMR\n"},
	media.MimeAMRWB: {"amr", "#!AMR-WB\n"},
	media.MimeH263:  {"h263", ""},
	media.MimeMPEG4: {"m4v", ""},
	media.MimeMPEG2: {"mpegvideo", ""},
}

// newFeed picks how compressed frames of format f reach ffmpeg.
func newFeed(f media.Format, frames []media.Frame) (inputFeed, error) {
	switch f.Mime {
	case media.MimeRawVideo, media.MimeRawAudio:
		return &rawFeed{args: rawInputArgs(f)}, nil
	}

	if f.Mime == media.MimeAAC && len(f.CodecPrivate) == 0 && !isADTS(frames) {
		asc, err := synthesizeASC(f)
		if err != nil {
			return nil, err
		}
		f.CodecPrivate = asc
	}

	if id := extractor.MatroskaCodecID(f.Mime); id != "" && (len(f.CodecPrivate) > 0 || !needsPrivate[f.Mime]) {
		return &matroskaFeed{codecID: id, format: f}, nil
	}
	if es, ok := elementary[f.Mime]; ok {
		prefix := []byte(es.header)
		if f.Mime == media.MimeMPEG4 {
			// The VOL header lives in the decoder config.
			prefix = append(prefix, f.CodecPrivate...)
		}
		return &rawFeed{args: []string{"-f", es.demuxer}, prefix: prefix}, nil
	}
	return nil, errors.Wrap(ErrUnsupportedInput, f.Mime)
}

func isADTS(frames []media.Frame) bool {
	for _, fr := range frames {
		if len(fr.Data) >= 2 {
			return fr.Data[0] == 0xFF && fr.Data[1]&0xF0 == 0xF0
		}
	}
	return false
}

// synthesizeASC builds an AAC-LC AudioSpecificConfig for raw access units
// that arrive without one.
func synthesizeASC(f media.Format) ([]byte, error) {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return nil, errors.Wrap(ErrUnsupportedInput, "aac without config or sample layout")
	}
	conf := mpeg4audio.AudioSpecificConfig{
		Type:         mpeg4audio.ObjectTypeAACLC,
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
	}
	asc, err := conf.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "marshal AudioSpecificConfig")
	}
	return asc, nil
}

func rawInputArgs(f media.Format) []string {
	if f.IsVideo() {
		pixFmt := PixelFormat(f.ColorFormat)
		fps := f.FrameRate
		if fps <= 0 {
			fps = media.DefaultFrameRate
		}
		return []string{
			"-f", "rawvideo",
			"-pix_fmt", pixFmt,
			"-s", strconv.Itoa(f.Width) + "x" + strconv.Itoa(f.Height),
			"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		}
	}
	return []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(f.SampleRate),
		"-ac", strconv.Itoa(f.Channels),
	}
}

// --- Elementary stream feed ---

type rawFeed struct {
	args   []string
	prefix []byte
	w      io.WriteCloser
}

func (r *rawFeed) InputArgs() []string { return r.args }

func (r *rawFeed) Begin(w io.WriteCloser) error {
	r.w = w
	if len(r.prefix) == 0 {
		return nil
	}
	_, err := w.Write(r.prefix)
	return err
}

func (r *rawFeed) WriteFrame(fr media.Frame) error {
	if fr.Size == 0 {
		return nil
	}
	_, err := r.w.Write(fr.Data)
	return err
}

func (r *rawFeed) End() error { return r.w.Close() }

// --- Matroska feed ---

const (
	mkvTrackVideo = 1
	mkvTrackAudio = 2
)

type matroskaFeed struct {
	codecID string
	format  media.Format
	w       io.WriteCloser
	track   webm.BlockWriteCloser
	fatal   error
}

func (m *matroskaFeed) InputArgs() []string { return []string{"-f", "matroska"} }

func (m *matroskaFeed) Begin(w io.WriteCloser) error {
	m.w = w
	te := webm.TrackEntry{
		Name:         "Input",
		TrackNumber:  1,
		TrackUID:     1,
		CodecID:      m.codecID,
		CodecPrivate: m.format.CodecPrivate,
	}
	if m.format.IsVideo() {
		te.TrackType = mkvTrackVideo
		te.Video = &webm.Video{
			PixelWidth:  uint64(m.format.Width),
			PixelHeight: uint64(m.format.Height),
		}
	} else {
		te.TrackType = mkvTrackAudio
		te.Audio = &webm.Audio{
			SamplingFrequency: float64(m.format.SampleRate),
			Channels:          uint64(m.format.Channels),
		}
	}

	writers, err := webm.NewSimpleBlockWriter(w, []webm.TrackEntry{te},
		mkvcore.WithOnFatalHandler(func(err error) { m.fatal = err }))
	if err != nil {
		return errors.Wrap(err, "start matroska feed")
	}
	m.track = writers[0]
	return nil
}

func (m *matroskaFeed) WriteFrame(fr media.Frame) error {
	if m.fatal != nil {
		return m.fatal
	}
	if fr.Size == 0 {
		return nil
	}
	_, err := m.track.Write(fr.Flags.Has(media.FlagKeyFrame), fr.PTS/1000, fr.Data)
	return err
}

// End closes the track, which finalises the segment, then stdin itself.
// The pipe ignores a second close.
func (m *matroskaFeed) End() error {
	var err error
	if m.track != nil {
		err = m.track.Close()
	}
	if cerr := m.w.Close(); err == nil {
		err = cerr
	}
	return err
}
