package ffmpeg

import (
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/codec"
	"github.com/backmassage/codecbench/internal/media"
	"github.com/backmassage/codecbench/internal/stats"
)

// runner is the lifecycle shared by Decoder and Encoder.
type runner struct {
	b      *Backend
	rec    *stats.Recorder
	sink   io.Writer
	format media.Format
	ready  bool
}

func newRunner(b *Backend) runner {
	return runner{b: b, rec: stats.NewRecorder()}
}

// Setup checks that ffmpeg is runnable and records where output goes.
func (r *runner) Setup(sink io.Writer) error {
	if _, err := exec.LookPath(r.b.bin()); err != nil {
		return errors.Wrap(err, "locate ffmpeg")
	}
	r.sink = sink
	r.ready = true
	return nil
}

// Format is the output format of the last run.
func (r *runner) Format() media.Format { return r.format }

// Timing is the profile of the last run.
func (r *runner) Timing() stats.Timing { return r.rec.Timing() }

// Reset clears the last run's timing and format.
func (r *runner) Reset() {
	r.rec.Reset()
	r.format = media.Format{}
}

// Release detaches the sink; Setup must be called again before reuse.
func (r *runner) Release() {
	r.sink = nil
	r.ready = false
}

func (r *runner) run(ctx context.Context, args []string, feed inputFeed, req codec.Request) (codec.Status, streamHeader) {
	if !r.ready {
		return codec.StatusInvalidObject, streamHeader{}
	}
	r.debug("Running: %s", strings.Join(args, " "))

	res := execute(ctx, job{
		args:   args,
		feed:   feed,
		frames: req.Frames,
		src:    req.Source,
		mode:   req.Mode,
		sink:   r.sink,
		rec:    r.rec,
		stderr: r.b.opts.Stderr,
	})

	status := Classify(ctx, res.Err, res.Stderr)
	if status.OK() && r.rec.Timing().Frames == 0 {
		status = codec.StatusMalformed
	}
	if res.CaptureErr != nil {
		r.warn("Output capture failed: %v", res.CaptureErr)
	}
	if !status.OK() {
		r.warn("ffmpeg %s: %s", status, lastLine(res.Stderr))
	}
	return status, res.Header
}

func (r *runner) warn(format string, args ...interface{}) {
	if r.b.opts.Log != nil {
		r.b.opts.Log.Warn(format, args...)
	}
}

func (r *runner) debug(format string, args ...interface{}) {
	if r.b.opts.Log != nil {
		r.b.opts.Log.Debug(r.b.opts.Verbose, format, args...)
	}
}

// lastLine returns the final non-empty line of s.
func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n\t ")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return "(no diagnostics)"
	}
	return s
}

// Decoder decodes compressed frames to 4:2:0 video or 16-bit PCM.
type Decoder struct {
	runner
}

var _ codec.Decoder = (*Decoder)(nil)

// Process decodes req.Frames, described by req.Format. req.Codec forces a
// decoder; empty lets ffmpeg choose.
func (d *Decoder) Process(ctx context.Context, req codec.Request) codec.Status {
	feed, err := newFeed(req.Format, req.Frames)
	if err != nil {
		d.warn("No input path for %s: %v", req.Format.Mime, err)
		return codec.StatusUnsupported
	}
	name, err := d.b.resolve(ctx, req.Codec, req.Format.Mime, false)
	if err != nil {
		d.warn("Decoder %q: %v", req.Codec, err)
		return codec.StatusUnsupported
	}

	args := buildDecode(d.b.bin(), d.b.opts.Verbose, decodeSpec{
		Input:   feed.InputArgs(),
		Video:   req.Format.IsVideo(),
		Decoder: name,
		PixFmt:  req.Format.ColorFormat,
		Capture: d.sink != nil,
	})
	status, hdr := d.run(ctx, args, feed, req)
	d.format = decodedFormat(req.Format, hdr)
	return status
}

// decodedFormat merges the framecrc header over the input's metadata. The
// source's pixel layout is kept when it is a supported 4:2:0 layout.
func decodedFormat(in media.Format, hdr streamHeader) media.Format {
	out := media.Format{DurationUs: in.DurationUs}
	if in.IsVideo() {
		out.Mime = media.MimeRawVideo
		out.ColorFormat = PixelFormat(in.ColorFormat)
		out.FrameRate = in.FrameRate
		out.Width, out.Height = in.Width, in.Height
		if hdr.Width > 0 && hdr.Height > 0 {
			out.Width, out.Height = hdr.Width, hdr.Height
		}
		return out
	}
	out.Mime = media.MimeRawAudio
	out.SampleFormat = "s16"
	out.SampleRate = in.SampleRate
	if hdr.SampleRate > 0 {
		out.SampleRate = hdr.SampleRate
	}
	out.Channels = in.Channels
	if n := hdr.Channels(); n > 0 {
		out.Channels = n
	}
	return out
}
