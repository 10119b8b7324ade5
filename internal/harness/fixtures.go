package harness

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/codec"
	"github.com/backmassage/codecbench/internal/display"
	"github.com/backmassage/codecbench/internal/extractor"
	"github.com/backmassage/codecbench/internal/matrix"
	"github.com/backmassage/codecbench/internal/media"
)

// Fixtures are the raw encoder inputs decoded at session start. Close
// deletes them; the compressed sources are never touched.
type Fixtures struct {
	Dir         string
	ColorFormat string // Pixel format the video decoder negotiated.

	paths []string
}

// Path returns the location of fixture name.
func (fx *Fixtures) Path(name string) string { return filepath.Join(fx.Dir, name) }

// Close deletes every fixture file created by the session.
func (fx *Fixtures) Close() error {
	var failed []string
	for _, p := range fx.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			failed = append(failed, p)
		}
	}
	fx.paths = nil
	if len(failed) > 0 {
		return errors.Wrapf(ErrCleanup, "unable to delete %s", strings.Join(failed, ", "))
	}
	return nil
}

// PrepareFixtures decodes each fixture source from the input directory
// into the fixture directory. Any failure is fatal for the session; files
// already written are removed before returning.
func (s *Session) PrepareFixtures(ctx context.Context) (*Fixtures, error) {
	if err := os.MkdirAll(s.cfg.FixtureDir, 0o755); err != nil {
		return nil, errors.Wrapf(ErrFixture, "create fixture dir: %v", err)
	}
	fx := &Fixtures{Dir: s.cfg.FixtureDir}
	for _, f := range matrix.Fixtures() {
		if err := s.prepareFixture(ctx, fx, f); err != nil {
			if cerr := fx.Close(); cerr != nil {
				s.log.Error("%v", cerr)
			}
			return nil, err
		}
	}
	return fx, nil
}

func (s *Session) prepareFixture(ctx context.Context, fx *Fixtures, f matrix.Fixture) error {
	log := s.log.WithField("fixture", f.Output)
	src := filepath.Join(s.cfg.InputDir, f.Source)
	if _, err := os.Stat(src); err != nil {
		return errors.Wrapf(ErrFixture, "cannot open input file %s", f.Source)
	}

	ctx, cancel := s.caseContext(ctx)
	defer cancel()

	ex, err := s.deps.Open(ctx, src, s.openOptions()...)
	if err != nil {
		return errors.Wrapf(ErrFixture, "extract %s: %v", f.Source, err)
	}
	defer ex.Close()
	if ex.TrackCount() <= 0 {
		return errors.Wrapf(ErrFixture, "no tracks in %s", f.Source)
	}

	out := fx.Path(f.Output)
	file, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(ErrFixture, "create %s: %v", f.Output, err)
	}
	fx.paths = append(fx.paths, out)

	for track := 0; track < ex.TrackCount(); track++ {
		if err := s.decodeFixtureTrack(ctx, fx, ex, track, file); err != nil {
			file.Close()
			return errors.Wrapf(err, "%s track %d", f.Source, track)
		}
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(ErrFixture, "close %s: %v", f.Output, err)
	}

	st, err := os.Stat(out)
	if err != nil || st.Size() == 0 {
		return errors.Wrapf(ErrFixture, "decoder produced no output for %s", f.Source)
	}
	log.Success("Prepared %s (%s)", f.Output, display.FormatBytes(st.Size()))
	return nil
}

func (s *Session) decodeFixtureTrack(ctx context.Context, fx *Fixtures, ex extractor.Extractor, track int, out *os.File) error {
	frames, format, err := extractor.Drain(ex, track)
	if err != nil {
		return errors.Wrapf(ErrFixture, "extract: %v", err)
	}

	dec := s.deps.NewDecoder()
	defer dec.Release()
	if err := dec.Setup(out); err != nil {
		return errors.Wrapf(ErrFixture, "decoder setup: %v", err)
	}
	status := dec.Process(ctx, codec.Request{Frames: frames, Format: format, Mode: media.ModeSync})
	if !status.OK() {
		return errors.Wrapf(ErrFixture, "decoder returned error %d (%s)", int(status), status)
	}
	if got := dec.Format(); got.IsVideo() && got.ColorFormat != "" {
		fx.ColorFormat = got.ColorFormat
	}
	return nil
}
