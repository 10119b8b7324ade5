// Package codec defines the contracts between the harness and a codec
// backend: decoders, encoders, and the registry that lists them per mime
// type. Backends live elsewhere (see package ffmpeg).
package codec

import (
	"context"
	"fmt"
	"io"

	"github.com/backmassage/codecbench/internal/media"
	"github.com/backmassage/codecbench/internal/stats"
)

// Status is the outcome code of one Process call. Zero is success.
type Status int

const (
	StatusOK Status = iota
	StatusUnsupported
	StatusMalformed
	StatusIO
	StatusTimeout
	StatusInvalidObject
	StatusUnknown
)

var statusNames = [...]string{
	StatusOK:            "ok",
	StatusUnsupported:   "unsupported",
	StatusMalformed:     "malformed",
	StatusIO:            "io",
	StatusTimeout:       "timeout",
	StatusInvalidObject: "invalid-object",
	StatusUnknown:       "unknown",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// OK reports whether s is success.
func (s Status) OK() bool { return s == StatusOK }

// Request is one Process invocation. Codec is a backend codec name; empty
// selects the backend's default for Format.Mime. Frames without Data are
// read from Source at their Offset as they are fed.
type Request struct {
	Frames []media.Frame
	Source io.ReaderAt
	Format media.Format
	Mode   media.Mode
	Codec  string
}

// Decoder turns compressed frames into raw output written to the sink
// given at Setup.
type Decoder interface {
	// Setup prepares a run. A nil sink discards decoded output.
	Setup(sink io.Writer) error
	Process(ctx context.Context, req Request) Status
	// Format is the negotiated output format of the last run.
	Format() media.Format
	Timing() stats.Timing
	// Reset clears per-run state so the instance can be reused.
	Reset()
	Release()
}

// Encoder turns raw frames into compressed output written to the sink
// given at Setup. Request.Format describes the target stream: mime,
// geometry or sample layout, bitrate and key-frame interval.
type Encoder interface {
	Setup(sink io.Writer) error
	Process(ctx context.Context, req Request) Status
	Format() media.Format
	Timing() stats.Timing
	Reset()
	Release()
}

// Registry lists codec implementations.
type Registry interface {
	ListCodecs(ctx context.Context, mime string, encoder bool) ([]string, error)
}
