package harness

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/codec"
	"github.com/backmassage/codecbench/internal/config"
	"github.com/backmassage/codecbench/internal/extractor"
	"github.com/backmassage/codecbench/internal/logging"
	"github.com/backmassage/codecbench/internal/media"
	"github.com/backmassage/codecbench/internal/metrics"
	"github.com/backmassage/codecbench/internal/naming"
	"github.com/backmassage/codecbench/internal/stats"
	"github.com/backmassage/codecbench/internal/sysload"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrAssetMissing = errors.New("asset not found")
	ErrNoCodec      = errors.New("no codec available")
	ErrFixture      = errors.New("fixture preparation failed")
	ErrCleanup      = errors.New("fixture cleanup failed")
	ErrCodec        = errors.New("codec returned an error")
)

// OpenFunc opens an asset for extraction.
type OpenFunc func(ctx context.Context, path string, opts ...extractor.Option) (extractor.Extractor, error)

// Deps are the collaborators a Session drives.
type Deps struct {
	NewDecoder func() codec.Decoder
	NewEncoder func() codec.Encoder
	Registry   codec.Registry

	Open       OpenFunc                 // Default: extractor.Open.
	Prober     extractor.PacketProber   // Fallback demuxer. Optional.
	CaptureExt func(mime string) string // Capture file extension. Default: "out".
	Load       *sysload.Monitor         // CPU sampling. Optional.
	Metrics    *metrics.Metrics         // Optional.
}

// Session is the state shared by every case of a suite run.
type Session struct {
	ID    string
	Stats RunStats

	cfg     *config.Config
	log     *logging.Logger
	sink    *stats.Sink
	deps    Deps
	now     func() time.Time
	results []stats.Result
}

// NewSession returns a Session writing rows to sink. A session id is
// generated and stamped on every log line.
func NewSession(cfg *config.Config, log *logging.Logger, sink *stats.Sink, deps Deps) *Session {
	if deps.Open == nil {
		deps.Open = extractor.Open
	}
	if deps.CaptureExt == nil {
		deps.CaptureExt = func(string) string { return "out" }
	}
	id := uuid.NewString()
	return &Session{
		ID:   id,
		cfg:  cfg,
		log:  log.WithField("session", id),
		sink: sink,
		deps: deps,
		now:  time.Now,
	}
}

// EnableMetrics starts collecting Prometheus metrics labelled with the
// session id and returns the collector.
func (s *Session) EnableMetrics() *metrics.Metrics {
	if s.deps.Metrics == nil {
		s.deps.Metrics = metrics.New(s.ID)
	}
	return s.deps.Metrics
}

// Results returns the rows recorded so far.
func (s *Session) Results() []stats.Result { return s.results }

// processor is the method set shared by codec.Decoder and codec.Encoder.
type processor interface {
	Setup(sink io.Writer) error
	Process(ctx context.Context, req codec.Request) codec.Status
	Format() media.Format
	Timing() stats.Timing
	Reset()
	Release()
}

// run describes one codec invocation.
type run struct {
	op          string
	reference   string
	codec       string
	mode        media.Mode
	frames      []media.Frame
	source      io.ReaderAt
	format      media.Format
	clipUs      int64
	captureMime string
}

// runCodec executes one run and records its row when it succeeds. The
// status is returned for the caller to judge; an error means the run could
// not be attempted or recorded.
func (s *Session) runCodec(ctx context.Context, log *logging.Logger, p processor, r run) (codec.Status, media.Format, error) {
	var capture *os.File
	if s.cfg.WriteOutput {
		path := naming.CapturePath(s.cfg.OutputDir, r.op, r.reference, r.codec, r.mode.String(), s.deps.CaptureExt(r.captureMime))
		capture = openCapture(log, path)
	}
	defer closeCapture(log, capture)

	var sink io.Writer
	if capture != nil {
		sink = capture
	}
	defer p.Release()
	if err := p.Setup(sink); err != nil {
		return codec.StatusInvalidObject, media.Format{}, errors.Wrap(err, "codec setup")
	}

	s.waitForIdle(ctx, log)

	var span *sysload.Span
	if s.deps.Load != nil {
		span = s.deps.Load.Begin(ctx)
	}
	status := p.Process(ctx, codec.Request{
		Frames: r.frames,
		Source: r.source,
		Format: r.format,
		Mode:   r.mode,
		Codec:  r.codec,
	})
	cpu := -1.0
	if span != nil {
		cpu = span.End(ctx)
	}

	out := p.Format()
	res := stats.Result{
		Time:       s.now(),
		Reference:  r.reference,
		Operation:  r.op,
		Codec:      naming.CodecLabel(r.codec),
		Mode:       r.mode.String(),
		Status:     int(status),
		Timing:     p.Timing(),
		TotalBytes: media.TotalBytes(r.frames),
		ClipUs:     r.clipUs,
		CPUPercent: cpu,
	}
	p.Reset()
	if err := s.record(res); err != nil {
		return status, out, err
	}
	return status, out, nil
}

// record updates counters and appends a row to the sink. Failed runs are
// counted but leave no row.
func (s *Session) record(res stats.Result) error {
	s.Stats.Runs++
	if s.deps.Metrics != nil {
		s.deps.Metrics.Observe(res)
	}
	if !res.OK() {
		s.Stats.CodecErrors++
		return nil
	}
	s.Stats.TotalBytes += res.TotalBytes
	s.results = append(s.results, res)
	return s.sink.Append(res)
}

func (s *Session) waitForIdle(ctx context.Context, log *logging.Logger) {
	if s.deps.Load == nil || s.cfg.IdleMaxCPU <= 0 {
		return
	}
	err := s.deps.Load.WaitForIdle(ctx, s.cfg.IdleTimeout, s.cfg.IdleMaxCPU, func(u float64) {
		log.Debug(s.cfg.Verbose, "CPU usage %.1f%%", u)
	})
	if err != nil {
		log.Warn("Running without idle CPU: %v", err)
	}
}

// openCapture prepares a fresh capture file. Failures are logged and
// capture is skipped.
func openCapture(log *logging.Logger, path string) *os.File {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Error("Cannot create output directory: %v", err)
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Error("Unable to delete existing file %s: %v", path, err)
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		log.Error("Unable to create file: %v", err)
		return nil
	}
	return f
}

func closeCapture(log *logging.Logger, f *os.File) {
	if f == nil {
		return
	}
	if err := f.Close(); err != nil {
		log.Error("Unable to close %s: %v", f.Name(), err)
	}
}

// assetPath resolves name under dir and reports ErrAssetMissing with one
// warning when it does not exist.
func assetPath(log *logging.Logger, dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		log.Warn("Test skipped: cannot find %s in directory %s", name, dir)
		return "", errors.Wrap(ErrAssetMissing, name)
	}
	return path, nil
}
