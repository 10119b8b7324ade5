package ffmpeg

import (
	"context"

	"github.com/backmassage/codecbench/internal/codec"
	"github.com/backmassage/codecbench/internal/media"
)

// Encoder encodes raw frames to the mime of Request.Format.
type Encoder struct {
	runner
}

var _ codec.Encoder = (*Encoder)(nil)

// Process encodes req.Frames, which must be raw input matching the target
// geometry (video) or sample layout (audio). req.Codec names the encoder;
// empty picks the first local encoder for the target mime.
func (e *Encoder) Process(ctx context.Context, req codec.Request) codec.Status {
	target := req.Format
	if !validTarget(target) {
		e.warn("Invalid encoder configuration for %s", target.Mime)
		return codec.StatusInvalidObject
	}

	input := rawInputFormat(target)
	feed, err := newFeed(input, req.Frames)
	if err != nil {
		e.warn("No input path for %s: %v", input.Mime, err)
		return codec.StatusUnsupported
	}
	name, err := e.b.resolve(ctx, req.Codec, target.Mime, true)
	if err != nil {
		e.warn("Encoder %q: %v", req.Codec, err)
		return codec.StatusUnsupported
	}

	args := buildEncode(e.b.bin(), e.b.opts.Verbose, encodeSpec{
		Input:   feed.InputArgs(),
		Target:  target,
		Encoder: name,
		Capture: e.sink != nil,
	})
	status, hdr := e.run(ctx, args, feed, req)
	e.format = encodedFormat(target, hdr)
	return status
}

func validTarget(f media.Format) bool {
	switch {
	case f.IsVideo():
		return f.Width > 0 && f.Height > 0
	case f.IsAudio():
		return f.SampleRate > 0 && f.Channels > 0
	}
	return false
}

// rawInputFormat describes the raw stream feeding an encoder for target.
// target.ColorFormat names the layout of the input frames.
func rawInputFormat(target media.Format) media.Format {
	if target.IsVideo() {
		return media.Format{
			Mime:        media.MimeRawVideo,
			Width:       target.Width,
			Height:      target.Height,
			FrameRate:   target.FrameRate,
			ColorFormat: PixelFormat(target.ColorFormat),
		}
	}
	return media.Format{
		Mime:         media.MimeRawAudio,
		SampleRate:   target.SampleRate,
		Channels:     target.Channels,
		SampleFormat: "s16",
	}
}

func encodedFormat(target media.Format, hdr streamHeader) media.Format {
	out := target
	out.CodecPrivate = nil
	if hdr.Width > 0 && hdr.Height > 0 {
		out.Width, out.Height = hdr.Width, hdr.Height
	}
	if hdr.SampleRate > 0 {
		out.SampleRate = hdr.SampleRate
	}
	if n := hdr.Channels(); n > 0 {
		out.Channels = n
	}
	return out
}
