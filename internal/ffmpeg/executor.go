package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/backmassage/codecbench/internal/media"
	"github.com/backmassage/codecbench/internal/stats"
)

// asyncQueueDepth bounds the frames queued between the async feeder and
// the stdin writer.
const asyncQueueDepth = 8

// job is one ffmpeg invocation.
type job struct {
	args   []string
	feed   inputFeed
	frames []media.Frame
	src    io.ReaderAt // Payloads of frames that carry only an offset.
	mode   media.Mode
	sink   io.Writer // fd 3 capture; nil when args carry no tee slave.
	rec    *stats.Recorder
	stderr io.Writer // Live copy of stderr; nil to capture silently.
}

// ExecResult holds the outcome of a single ffmpeg invocation.
type ExecResult struct {
	Header     streamHeader
	Stderr     string
	Err        error // Process or feed failure.
	CaptureErr error // Copying fd 3 to the sink failed; the run itself may be fine.
}

// execute starts ffmpeg, feeds frames on stdin in the job's mode, drains
// the framecrc report from stdout and waits for exit. Recorder marks:
// setup spans process start and feed header, process runs from the first
// input to the last output line, release spans stdout EOF to exit.
func execute(ctx context.Context, j job) ExecResult {
	cmd := exec.CommandContext(ctx, j.args[0], j.args[1:]...)

	var stderrBuf bytes.Buffer
	if j.stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, j.stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return ExecResult{Err: errors.Wrap(err, "stdin pipe")}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ExecResult{Err: errors.Wrap(err, "stdout pipe")}
	}

	var capR, capW *os.File
	if j.sink != nil {
		if capR, capW, err = os.Pipe(); err != nil {
			return ExecResult{Err: errors.Wrap(err, "capture pipe")}
		}
		cmd.ExtraFiles = []*os.File{capW}
	}

	j.rec.BeginSetup()
	if err := cmd.Start(); err != nil {
		if capR != nil {
			capR.Close()
			capW.Close()
		}
		return ExecResult{Err: errors.Wrap(err, "start ffmpeg")}
	}

	capDone := make(chan error, 1)
	if capR != nil {
		capW.Close()
		go func() {
			_, err := io.Copy(j.sink, capR)
			// Keep draining so ffmpeg never blocks on a failed sink.
			if err != nil {
				io.Copy(io.Discard, capR)
			}
			capR.Close()
			capDone <- err
		}()
	} else {
		capDone <- nil
	}

	res := ExecResult{}
	feedErr := j.feed.Begin(stdin)
	j.rec.EndSetup()
	j.rec.BeginProcess()

	onFrame := func(frameLine) { j.rec.MarkOutput() }
	if feedErr == nil {
		switch j.mode {
		case media.ModeAsync:
			res.Header, feedErr = runAsync(ctx, j, stdout, onFrame)
		default:
			res.Header, feedErr = runSync(j, stdout, onFrame)
		}
	} else {
		stdin.Close()
		io.Copy(io.Discard, stdout)
	}

	j.rec.BeginRelease()
	waitErr := cmd.Wait()
	res.CaptureErr = <-capDone
	j.rec.EndRelease()

	res.Stderr = stderrBuf.String()
	switch {
	case waitErr != nil:
		res.Err = waitErr
	case feedErr != nil:
		res.Err = errors.Wrap(feedErr, "feed input")
	}
	return res
}

// runSync writes every frame from the calling goroutine; a drainer reads
// the report concurrently so neither pipe can fill up.
func runSync(j job, stdout io.Reader, onFrame func(frameLine)) (streamHeader, error) {
	type scanned struct {
		h   streamHeader
		err error
	}
	done := make(chan scanned, 1)
	go func() {
		h, err := scanFrameCRC(stdout, onFrame)
		done <- scanned{h, err}
	}()

	feedErr := feedAll(j.feed, j.frames, j.src)
	s := <-done
	if feedErr != nil {
		return s.h, feedErr
	}
	return s.h, s.err
}

// runAsync queues frames from a feeder goroutine to a stdin writer while
// the report is drained through the output callback.
func runAsync(ctx context.Context, j job, stdout io.Reader, onFrame func(frameLine)) (streamHeader, error) {
	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan media.Frame, asyncQueueDepth)

	g.Go(func() error {
		defer close(queue)
		for _, fr := range j.frames {
			select {
			case queue <- fr:
			case <-gctx.Done():
				return gctx.Err()
			}
			if fr.Flags.Has(media.FlagEndOfStream) {
				break
			}
		}
		return nil
	})

	g.Go(func() error {
		var err error
		var scratch []byte
		for fr := range queue {
			if err == nil {
				if fr, err = payload(j.src, fr, &scratch); err == nil {
					err = j.feed.WriteFrame(fr)
				}
			}
		}
		if cerr := j.feed.End(); err == nil {
			err = cerr
		}
		return err
	})

	var header streamHeader
	g.Go(func() error {
		var err error
		header, err = scanFrameCRC(stdout, onFrame)
		return err
	})

	err := g.Wait()
	return header, err
}

// feedAll writes frames up to and including the end-of-stream frame, then
// closes stdin. Stdin is closed even after a write error so the process
// can exit.
func feedAll(feed inputFeed, frames []media.Frame, src io.ReaderAt) error {
	var err error
	var scratch []byte
	for _, fr := range frames {
		if fr, err = payload(src, fr, &scratch); err != nil {
			break
		}
		if err = feed.WriteFrame(fr); err != nil {
			break
		}
		if fr.Flags.Has(media.FlagEndOfStream) {
			break
		}
	}
	if cerr := feed.End(); err == nil {
		err = cerr
	}
	return err
}

// payload fills fr.Data from src when the frame carries only an offset.
// The returned slice aliases scratch and is valid until the next call.
func payload(src io.ReaderAt, fr media.Frame, scratch *[]byte) (media.Frame, error) {
	if fr.Data != nil || fr.Size == 0 || src == nil {
		return fr, nil
	}
	if cap(*scratch) < fr.Size {
		*scratch = make([]byte, fr.Size)
	}
	buf := (*scratch)[:fr.Size]
	if n, err := src.ReadAt(buf, fr.Offset); n < len(buf) {
		return fr, errors.Wrapf(err, "read input at %d", fr.Offset)
	}
	fr.Data = buf
	return fr, nil
}
