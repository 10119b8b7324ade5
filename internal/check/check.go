// Package check provides system diagnostics (the check command) and the
// pre-suite dependency validation (CheckDeps) for ffmpeg, ffprobe and the
// codecs the benchmark matrix needs.
package check

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/config"
	"github.com/backmassage/codecbench/internal/media"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrFFmpegNotFound  = errors.New("ffmpeg not found")
	ErrFFprobeNotFound = errors.New("ffprobe not found")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// Backend is the codec backend being diagnosed.
type Backend interface {
	Version(ctx context.Context) (string, error)
	ListCodecs(ctx context.Context, mime string, encoder bool) ([]string, error)
}

// Mimes are the compressed formats reported by RunCheck, in display order.
var Mimes = []string{
	media.MimeAVC, media.MimeHEVC, media.MimeVP8, media.MimeVP9, media.MimeAV1,
	media.MimeMPEG2, media.MimeMPEG4, media.MimeH263,
	media.MimeAAC, media.MimeMP3, media.MimeAMRNB, media.MimeAMRWB,
	media.MimeVorbis, media.MimeFLAC, media.MimeOpus,
}

var (
	lookPath   = exec.LookPath
	runVersion = func(ctx context.Context, bin string) ([]byte, error) {
		return exec.CommandContext(ctx, bin, "-version").Output()
	}
)

// RunCheck prints the availability of ffmpeg and ffprobe and the decoders
// and encoders the backend offers for each mime. It reports false when a
// required tool is missing; missing codecs only warn.
func RunCheck(ctx context.Context, cfg *config.Config, log Logger, b Backend) bool {
	log.Info("=== System Check ===")

	ok := true
	if v, err := b.Version(ctx); err != nil {
		log.Error("ffmpeg (%s) not usable: %v", cfg.FFmpegPath, err)
		ok = false
	} else {
		log.Success("ffmpeg: %s", v)
	}
	if !checkFFprobe(ctx, cfg.FFprobePath, log) {
		ok = false
	}
	if !ok {
		return false
	}

	log.Info("Codecs per mime type:")
	for _, mime := range Mimes {
		checkMime(ctx, log, b, mime)
	}
	return true
}

// checkFFprobe verifies ffprobe resolves and logs its version line.
func checkFFprobe(ctx context.Context, bin string, log Logger) bool {
	if _, err := lookPath(bin); err != nil {
		log.Error("ffprobe (%s) not found", bin)
		return false
	}
	out, err := runVersion(ctx, bin)
	if err != nil {
		log.Warn("ffprobe found but -version failed: %v", err)
		return true
	}
	log.Success("ffprobe: %s", firstLine(string(out)))
	return true
}

func checkMime(ctx context.Context, log Logger, b Backend, mime string) {
	dec, derr := b.ListCodecs(ctx, mime, false)
	enc, eerr := b.ListCodecs(ctx, mime, true)
	if derr != nil || eerr != nil {
		log.Warn("  %-22s could not list codecs: %v", mime, errors.Wrap(firstErr(derr, eerr), mime))
		return
	}
	if len(dec) == 0 && len(enc) == 0 {
		log.Warn("  %-22s none", mime)
		return
	}
	log.Info("  %-22s decoders: %s; encoders: %s", mime, joinOrDash(dec), joinOrDash(enc))
}

// CheckDeps is the pre-suite validation: ffmpeg and ffprobe must resolve.
// Returns a sentinel error on failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := lookPath(cfg.FFmpegPath); err != nil {
		return errors.Wrap(ErrFFmpegNotFound, cfg.FFmpegPath)
	}
	if _, err := lookPath(cfg.FFprobePath); err != nil {
		return errors.Wrap(ErrFFprobeNotFound, cfg.FFprobePath)
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx > 0 {
		s = s[:idx]
	}
	return s
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
