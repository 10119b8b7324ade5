// Package extractor pulls compressed samples out of media assets, one track
// at a time, behind a small pull-style interface.
//
// Container parsing is delegated: MP4/3GP to go-mp4, Matroska/WebM to
// ebml-go, MPEG-TS to go-astits, and anything else to an ffprobe packet
// table. Every backend produces the same in-memory sample table, so the
// pull semantics live in one place.
package extractor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/media"
	"github.com/backmassage/codecbench/internal/probe"
)

// ErrNoTrackSelected is reported by NextSample callers through Err when
// no track was selected first.
var ErrNoTrackSelected = errors.New("no track selected")

// Extractor walks the samples of one selected track.
//
// NextSample advances to the next sample and returns its size. A return of
// zero or less ends the track: the current frame is then a zero-size
// end-of-stream marker. Err reports the read error, if any, that ended it.
type Extractor interface {
	TrackCount() int
	SelectTrack(index int) error
	Format(index int) (media.Format, error)
	NextSample() int
	BufferInfo() media.Frame
	FrameBuffer() []byte
	UnselectTrack(index int)
	ClipDuration() int64
	Err() error
	Close() error
}

// PacketProber locates samples for containers without a native demuxer.
type PacketProber interface {
	Probe(ctx context.Context, path string) (*probe.ProbeResult, error)
	Packets(ctx context.Context, path string) ([]probe.Packet, error)
}

type options struct {
	prober    PacketProber
	rawFormat *media.Format
}

// Option configures Open.
type Option func(*options)

// WithProber sets the ffprobe fallback used for containers that have no
// native demuxer. Without it such assets fail to open.
func WithProber(p PacketProber) Option {
	return func(o *options) { o.prober = p }
}

// WithRawFormat describes a headerless .yuv/.raw asset so it can be opened
// as a single-track table of encoder-sized frames.
func WithRawFormat(f media.Format) Option {
	return func(o *options) { o.rawFormat = &f }
}

// Open picks a demuxer by file extension and loads the asset's sample
// tables.
func Open(ctx context.Context, path string, opts ...Option) (Extractor, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open asset")
	}

	var tr *table
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp4", ".m4a", ".m4v", ".3gp", ".3g2", ".mov":
		tr, err = loadMP4(f)
	case ".mkv", ".webm", ".mka":
		tr, err = loadMatroska(f)
	case ".ts", ".m2ts":
		tr, err = loadMPEGTS(ctx, f)
	case ".yuv", ".raw", ".pcm":
		if o.rawFormat == nil {
			err = errors.Errorf("raw asset %s needs a format", filepath.Base(path))
			break
		}
		tr, err = loadRaw(f, *o.rawFormat)
	default:
		if o.prober == nil {
			err = errors.Errorf("no demuxer for %q", ext)
			break
		}
		tr, err = loadPackets(ctx, path, o.prober)
	}
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "extract %s", filepath.Base(path))
	}
	tr.src, tr.closer = f, f
	return tr, nil
}

// Drain selects track index, pulls every sample until the extractor
// signals the end, and unselects the track. The returned sequence ends with
// the zero-size end-of-stream frame.
func Drain(ex Extractor, index int) ([]media.Frame, media.Format, error) {
	format, err := ex.Format(index)
	if err != nil {
		return nil, media.Format{}, err
	}
	if err := ex.SelectTrack(index); err != nil {
		return nil, format, err
	}
	defer ex.UnselectTrack(index)

	var frames []media.Frame
	for {
		size := ex.NextSample()
		info := ex.BufferInfo()
		if size > 0 {
			info.Data = append([]byte(nil), ex.FrameBuffer()...)
		}
		frames = append(frames, info)
		if size <= 0 {
			break
		}
	}
	return frames, format, ex.Err()
}

// --- Sample table shared by every backend ---

type sample struct {
	offset int64
	size   int
	pts    int64
	flags  media.Flag
	data   []byte // Nil when the payload is read from src on demand.
}

type track struct {
	format  media.Format
	samples []sample
}

type table struct {
	src      io.ReaderAt
	closer   io.Closer
	tracks   []track
	duration int64 // Container duration in microseconds.

	selected int
	next     int
	cur      media.Frame
	buf      []byte // Payload of cur.
	scratch  []byte
	err      error
}

func newTable(tracks []track, durationUs int64) *table {
	return &table{tracks: tracks, duration: durationUs, selected: -1}
}

func (t *table) TrackCount() int { return len(t.tracks) }

func (t *table) SelectTrack(index int) error {
	if index < 0 || index >= len(t.tracks) {
		return errors.Errorf("track %d out of range [0,%d)", index, len(t.tracks))
	}
	t.selected, t.next, t.err = index, 0, nil
	t.cur = media.Frame{}
	return nil
}

func (t *table) UnselectTrack(index int) {
	if t.selected == index {
		t.selected = -1
	}
}

func (t *table) Format(index int) (media.Format, error) {
	if index < 0 || index >= len(t.tracks) {
		return media.Format{}, errors.Errorf("track %d out of range [0,%d)", index, len(t.tracks))
	}
	return t.tracks[index].format, nil
}

func (t *table) NextSample() int {
	if t.selected < 0 {
		t.err = ErrNoTrackSelected
		t.cur = media.Frame{Flags: media.FlagEndOfStream}
		return -1
	}
	samples := t.tracks[t.selected].samples
	if t.next >= len(samples) || t.err != nil {
		t.endOfStream(samples)
		return 0
	}

	s := samples[t.next]
	t.next++
	data := s.data
	if data == nil {
		if cap(t.scratch) < s.size {
			t.scratch = make([]byte, s.size)
		}
		data = t.scratch[:s.size]
		if _, err := t.src.ReadAt(data, s.offset); err != nil {
			t.err = errors.Wrapf(err, "read sample at %d", s.offset)
			t.endOfStream(samples)
			return -1
		}
	}
	t.buf = data
	t.cur = media.Frame{Offset: s.offset, Size: len(data), PTS: s.pts, Flags: s.flags}
	return len(data)
}

func (t *table) endOfStream(samples []sample) {
	var pts int64
	if n := len(samples); n > 0 {
		pts = samples[n-1].pts
	}
	t.buf = nil
	t.cur = media.Frame{PTS: pts, Flags: media.FlagEndOfStream}
}

func (t *table) BufferInfo() media.Frame { return t.cur }

func (t *table) FrameBuffer() []byte { return t.buf }

// ClipDuration is the selected track's duration, falling back to the
// container duration.
func (t *table) ClipDuration() int64 {
	if t.selected >= 0 {
		if d := t.tracks[t.selected].format.DurationUs; d > 0 {
			return d
		}
	}
	return t.duration
}

func (t *table) Err() error { return t.err }

func (t *table) Close() error {
	if t.closer == nil {
		return nil
	}
	err := t.closer.Close()
	t.closer = nil
	return err
}
