package ffmpeg

import (
	"context"
	"os/exec"
	"regexp"

	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/codec"
)

// Pre-compiled regexes for classifying ffmpeg stderr output into status
// codes. Checked in order by [Classify]; the first match wins.
var (
	reUnsupported = regexp.MustCompile(
		`(?i)Unknown encoder|Unknown decoder|` +
			`Encoder .* not found|Decoder .* not found|` +
			`Unsupported codec|codec not currently supported|` +
			`is experimental but experimental codecs are not enabled|` +
			`Requested output format .* is not a suitable output format`)

	reInvalidObject = regexp.MustCompile(
		`(?i)Error while opening (en|de)coder|Could not open (en|de)coder|` +
			`Error initializing output stream|Invalid argument|` +
			`Option .* not found|not supported by the encoder|` +
			`bitrate not supported|Specified sample rate .* is not supported|` +
			`Specified channel layout .* is not supported`)

	reMalformed = regexp.MustCompile(
		`(?i)Invalid data found when processing input|` +
			`Error while decoding|Error submitting packet to decoder|` +
			`corrupt|invalid NAL unit|no frame!|missing picture|` +
			`Header missing|EBML header parsing failed|` +
			`could not find codec parameters`)

	reIO = regexp.MustCompile(
		`(?i)Broken pipe|I/O error|Input/output error|` +
			`No such file or directory|Permission denied|` +
			`Error writing trailer|Conversion failed`)
)

// Classify maps the outcome of an ffmpeg run to a status code.
func Classify(ctx context.Context, runErr error, stderr string) codec.Status {
	if runErr == nil {
		return codec.StatusOK
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return codec.StatusTimeout
	}
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		// The process never ran.
		return codec.StatusInvalidObject
	}
	switch {
	case reUnsupported.MatchString(stderr):
		return codec.StatusUnsupported
	case reInvalidObject.MatchString(stderr):
		return codec.StatusInvalidObject
	case reMalformed.MatchString(stderr):
		return codec.StatusMalformed
	case reIO.MatchString(stderr):
		return codec.StatusIO
	}
	return codec.StatusUnknown
}
