package extractor

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/media"
)

// InputFrameSize is the encoder input unit for f: one planar 4:2:0
// picture for video, a fixed PCM chunk for audio.
func InputFrameSize(f media.Format) int {
	if f.IsVideo() {
		return media.RawVideoFrameSize(f.Width, f.Height)
	}
	return media.AudioInputFrameSize
}

// inputPTS is the presentation time of the n-th encoder input frame.
func inputPTS(f media.Format, n int64, frameSize int) int64 {
	if f.IsVideo() {
		fps := int64(f.FrameRate)
		if fps <= 0 {
			fps = media.DefaultFrameRate
		}
		return n * (1000000 / fps)
	}
	if f.SampleRate <= 0 {
		return 0
	}
	return n * int64(frameSize) * 1000000 / int64(f.SampleRate)
}

// SplitRaw slices a headerless stream of total bytes into encoder input
// frames. The last frame may be short and carries the end-of-stream flag.
// Frames carry offsets only; Data is left nil.
func SplitRaw(total int64, f media.Format) []media.Frame {
	size := InputFrameSize(f)
	if size <= 0 || total <= 0 {
		return nil
	}
	n := (total + int64(size) - 1) / int64(size)
	frames := make([]media.Frame, 0, n)
	for i := int64(0); i < n; i++ {
		off := i * int64(size)
		fr := media.Frame{
			Offset: off,
			Size:   int(min(int64(size), total-off)),
			PTS:    inputPTS(f, i, size),
			Flags:  media.FlagKeyFrame,
		}
		if i == n-1 {
			fr.Flags |= media.FlagEndOfStream
		}
		frames = append(frames, fr)
	}
	return frames
}

// RawInput is a raw fixture split into encoder input frames. Frames carry
// offsets only; payloads are read from the file as they are fed.
type RawInput struct {
	Frames []media.Frame
	file   *os.File
}

// OpenRaw opens a raw fixture described by f without reading its payload.
func OpenRaw(path string, f media.Format) (*RawInput, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open raw input")
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "stat raw input")
	}
	frames := SplitRaw(st.Size(), f)
	if len(frames) == 0 {
		file.Close()
		return nil, errors.Wrap(io.ErrUnexpectedEOF, "empty raw input")
	}
	return &RawInput{Frames: frames, file: file}, nil
}

// ReadAt reads frame payloads from the fixture.
func (r *RawInput) ReadAt(p []byte, off int64) (int, error) { return r.file.ReadAt(p, off) }

// Close releases the fixture file.
func (r *RawInput) Close() error { return r.file.Close() }

// loadRaw exposes a raw file as one track read on demand.
func loadRaw(f *os.File, format media.Format) (*table, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat raw input")
	}
	frames := SplitRaw(st.Size(), format)
	if len(frames) == 0 {
		return nil, errors.Wrap(io.ErrUnexpectedEOF, "empty raw input")
	}
	samples := make([]sample, len(frames))
	for i, fr := range frames {
		// End of stream is signalled by the table itself.
		samples[i] = sample{offset: fr.Offset, size: fr.Size, pts: fr.PTS, flags: fr.Flags &^ media.FlagEndOfStream}
	}
	if format.DurationUs == 0 {
		last := frames[len(frames)-1]
		format.DurationUs = last.PTS + inputPTS(format, 1, InputFrameSize(format))
	}
	return newTable([]track{{format: format, samples: samples}}, format.DurationUs), nil
}
