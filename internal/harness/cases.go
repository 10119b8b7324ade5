package harness

import (
	"context"

	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/extractor"
	"github.com/backmassage/codecbench/internal/logging"
	"github.com/backmassage/codecbench/internal/matrix"
	"github.com/backmassage/codecbench/internal/media"
	"github.com/backmassage/codecbench/internal/stats"
	"github.com/backmassage/codecbench/internal/sysload"
)

func (s *Session) openOptions() []extractor.Option {
	if s.deps.Prober == nil {
		return nil
	}
	return []extractor.Option{extractor.WithProber(s.deps.Prober)}
}

func (s *Session) caseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CaseTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.CaseTimeout)
}

// --- Decode ---

// RunDecodeCase decodes every track of the case's asset and records one
// row per successfully decoded track. A non-success decoder status is
// logged and counted; the case still completes.
func (s *Session) RunDecodeCase(ctx context.Context, c matrix.Case) error {
	log := s.log.WithCase(c.Name())
	path, err := assetPath(log, s.cfg.InputDir, c.Input)
	if err != nil {
		return err
	}

	ctx, cancel := s.caseContext(ctx)
	defer cancel()

	ex, err := s.deps.Open(ctx, path, s.openOptions()...)
	if err != nil {
		return errors.Wrap(err, "extraction failed")
	}
	defer ex.Close()

	n := ex.TrackCount()
	if n <= 0 {
		return errors.Errorf("extraction failed: no tracks in %s", c.Input)
	}
	for track := 0; track < n; track++ {
		frames, format, err := extractor.Drain(ex, track)
		if err != nil {
			return errors.Wrapf(err, "extract track %d", track)
		}
		log.Debug(s.cfg.Verbose, "Track %d: %s, %d frames", track, format.Mime, len(frames))

		status, _, err := s.runCodec(ctx, log, s.deps.NewDecoder(), run{
			op:          stats.OpDecode,
			reference:   c.Reference(),
			codec:       c.Codec,
			mode:        c.Mode,
			frames:      frames,
			format:      format,
			clipUs:      ex.ClipDuration(),
			captureMime: rawMime(format),
		})
		if err != nil {
			return err
		}
		if !status.OK() {
			log.Error("Decoder returned error %d (%s)", int(status), status)
			continue
		}
		log.Success("Decoding successful")
	}
	return nil
}

func rawMime(f media.Format) string {
	if f.IsVideo() {
		return media.MimeRawVideo
	}
	return media.MimeRawAudio
}

// --- Encode ---

// RunEncodeCase runs the case's fan-out over the session fixtures. The
// case timeout bounds the whole fan-out, not each run.
func (s *Session) RunEncodeCase(ctx context.Context, c matrix.Case, fx *Fixtures) error {
	log := s.log.WithCase(c.Name())
	dir := s.cfg.FixtureDir
	if fx != nil {
		dir = fx.Dir
	}
	path, err := assetPath(log, dir, c.Input)
	if err != nil {
		return err
	}

	ctx, cancel := s.caseContext(ctx)
	defer cancel()
	return s.FanOut(ctx, log, c, path, fx)
}

// FanOut lists the encoders for the case's mime and runs every one in
// each mode, async first. The first failing run fails the case; an empty
// list fails it before any frame is processed.
func (s *Session) FanOut(ctx context.Context, log *logging.Logger, c matrix.Case, path string, fx *Fixtures) error {
	codecs, err := s.deps.Registry.ListCodecs(ctx, c.Mime, true)
	if err != nil {
		return errors.Wrapf(err, "list encoders for %s", c.Mime)
	}
	if len(codecs) == 0 {
		return errors.Wrapf(ErrNoCodec, "no suitable codecs found for mimetype %s", c.Mime)
	}

	format := c.Format()
	if fx != nil && format.IsVideo() && fx.ColorFormat != "" {
		format.ColorFormat = fx.ColorFormat
	}
	in, err := extractor.OpenRaw(path, format)
	if err != nil {
		return errors.Wrap(err, "cannot open decoded file")
	}
	defer in.Close()
	clip := stats.ClipDuration(format, media.TotalBytes(in.Frames), extractor.InputFrameSize(format))

	for _, mode := range media.AllModes {
		for _, name := range codecs {
			if err := ctx.Err(); err != nil {
				return errors.Wrapf(err, "encode case interrupted before %s (%s)", name, mode)
			}
			if err := s.EncodeOnce(ctx, log, c, name, mode, in, format, clip); err != nil {
				return err
			}
		}
	}
	return nil
}

// EncodeOnce runs one encoder in one mode over in and records its row. A
// non-success status is an error.
func (s *Session) EncodeOnce(ctx context.Context, log *logging.Logger, c matrix.Case, codecName string, mode media.Mode,
	in *extractor.RawInput, format media.Format, clipUs int64) error {
	log.Debug(s.cfg.Verbose, "Encoding with %s (%s)", codecName, mode)
	status, _, err := s.runCodec(ctx, log, s.deps.NewEncoder(), run{
		op:          stats.OpEncode,
		reference:   c.Reference(),
		codec:       codecName,
		mode:        mode,
		frames:      in.Frames,
		source:      in,
		format:      format,
		clipUs:      clipUs,
		captureMime: format.Mime,
	})
	if err != nil {
		return err
	}
	if !status.OK() {
		return errors.Wrapf(ErrCodec, "encoder %s (%s) returned %d (%s)", codecName, mode, int(status), status)
	}
	log.Success("Encoded with %s (%s)", codecName, mode)
	return nil
}

// --- Extract ---

// RunExtractCase times extraction of every track of the case's asset and
// records one row per track. Setup covers track selection, and for the
// first track also opening the file; each sample read is an output.
func (s *Session) RunExtractCase(ctx context.Context, c matrix.Case) error {
	log := s.log.WithCase(c.Name())
	path, err := assetPath(log, s.cfg.InputDir, c.Input)
	if err != nil {
		return err
	}

	ctx, cancel := s.caseContext(ctx)
	defer cancel()

	rec := stats.NewRecorder()
	rec.BeginSetup()
	ex, err := s.deps.Open(ctx, path, s.openOptions()...)
	if err != nil {
		return errors.Wrap(err, "init extractor")
	}
	defer ex.Close()

	n := ex.TrackCount()
	if n <= 0 {
		return errors.Errorf("init extractor: no tracks in %s", c.Input)
	}
	for track := 0; track < n; track++ {
		if track > 0 {
			rec = stats.NewRecorder()
			rec.BeginSetup()
		}
		if err := s.extractTrack(ctx, log, ex, track, rec, c); err != nil {
			return err
		}
	}
	log.Success("Extracted %d track(s)", n)
	return nil
}

func (s *Session) extractTrack(ctx context.Context, log *logging.Logger, ex extractor.Extractor, track int, rec *stats.Recorder, c matrix.Case) error {
	format, err := ex.Format(track)
	if err != nil {
		return errors.Wrapf(err, "track %d format", track)
	}
	if err := ex.SelectTrack(track); err != nil {
		return errors.Wrapf(err, "select track %d", track)
	}
	rec.EndSetup()

	var span *sysload.Span
	if s.deps.Load != nil {
		span = s.deps.Load.Begin(ctx)
	}

	var total int64
	rec.BeginProcess()
	for {
		if ctx.Err() != nil {
			ex.UnselectTrack(track)
			return errors.Wrap(ctx.Err(), "extraction interrupted")
		}
		size := ex.NextSample()
		if size <= 0 {
			break
		}
		total += int64(size)
		rec.MarkOutput()
	}
	rec.BeginRelease()
	ex.UnselectTrack(track)
	rec.EndRelease()

	if err := ex.Err(); err != nil {
		return errors.Wrapf(err, "extraction failed on track %d", track)
	}
	cpu := -1.0
	if span != nil {
		cpu = span.End(ctx)
	}

	log.Debug(s.cfg.Verbose, "Track %d: %s, %d bytes", track, format.Mime, total)
	return s.record(stats.Result{
		Time:       s.now(),
		Reference:  c.Reference(),
		Operation:  stats.OpExtract,
		Codec:      format.Mime,
		Mode:       media.ModeSync.String(),
		Timing:     rec.Timing(),
		TotalBytes: total,
		ClipUs:     ex.ClipDuration(),
		CPUPercent: cpu,
	})
}
