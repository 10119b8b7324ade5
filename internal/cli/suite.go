package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/backmassage/codecbench/internal/check"
	"github.com/backmassage/codecbench/internal/codec"
	"github.com/backmassage/codecbench/internal/display"
	"github.com/backmassage/codecbench/internal/ffmpeg"
	"github.com/backmassage/codecbench/internal/harness"
	"github.com/backmassage/codecbench/internal/matrix"
	"github.com/backmassage/codecbench/internal/metrics"
	"github.com/backmassage/codecbench/internal/probe"
	"github.com/backmassage/codecbench/internal/stats"
	"github.com/backmassage/codecbench/internal/storage"
	"github.com/backmassage/codecbench/internal/sysload"
)

// suite describes one benchmark subcommand.
type suite struct {
	use       string
	short     string
	operation string // Stats file prefix.
	kind      matrix.Kind
	cases     func() []matrix.Case
}

var (
	suiteDecode = suite{
		use:       "decode",
		short:     "Decode every asset of the decode matrix in sync and async mode",
		operation: "Decoder",
		kind:      matrix.KindDecode,
		cases:     matrix.DecodeCases,
	}
	suiteEncode = suite{
		use:       "encode",
		short:     "Decode the fixtures, then encode them with every available encoder",
		operation: "Encoder",
		kind:      matrix.KindEncode,
		cases:     matrix.EncodeCases,
	}
	suiteExtract = suite{
		use:       "extract",
		short:     "Time sample extraction of every track of the video assets",
		operation: "Extractor",
		kind:      matrix.KindExtract,
		cases:     matrix.ExtractCases,
	}
)

func newSuiteCommand(a *app, s suite) *cobra.Command {
	return &cobra.Command{
		Use:   s.use,
		Short: s.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSuite(cmd.Context(), s)
		},
	}
}

// signalContext cancels on SIGINT/SIGTERM so the suite stops between cases.
func (a *app) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			a.log.Warn("Received interrupt, finishing current case…")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func (a *app) backend() *ffmpeg.Backend { return ffmpeg.New(a.backendOptions()) }

// backendOptions mirrors ffmpeg's stderr live in verbose mode.
func (a *app) backendOptions() ffmpeg.Options {
	opts := ffmpeg.Options{
		Path:    a.cfg.FFmpegPath,
		Verbose: a.cfg.Verbose,
		Log:     a.log,
	}
	if a.cfg.Verbose {
		opts.Stderr = a.errOut
	}
	return opts
}

// runSuite runs one benchmark suite end to end: dependency check, stats
// file, fixtures (encode only), the case loop, summary, metrics and
// publishing.
func (a *app) runSuite(parent context.Context, s suite) (retErr error) {
	cases := matrix.Filter(s.cases(), a.cfg.CaseMatcher())
	if len(cases) == 0 {
		a.log.Warn("No %s cases match --run %q", s.use, a.cfg.RunFilter)
		return nil
	}

	display.PrintBanner(a.out)
	a.log.Info("=== codecbench v%s (%s) ===", a.version, a.commit)
	a.log.Info("Assets: %s", a.cfg.InputDir)
	if a.cfg.WriteOutput {
		a.log.Info("Output: %s", a.cfg.OutputDir)
	}

	if err := check.CheckDeps(&a.cfg); err != nil {
		a.log.Error("%v", err)
		return errFailed
	}
	if s.kind == matrix.KindEncode {
		if err := a.validateFixtureDir(); err != nil {
			a.log.Error("%v", err)
			return errFailed
		}
	}

	ctx, cancel := a.signalContext(parent)
	defer cancel()

	sink, err := stats.OpenSink(a.cfg.StatsDir, s.operation, time.Now())
	if err != nil {
		a.log.Error("%v", err)
		return errFailed
	}
	defer sink.Close()

	b := a.backend()
	deps := harness.Deps{
		NewDecoder: func() codec.Decoder { return b.NewDecoder() },
		NewEncoder: func() codec.Encoder { return b.NewEncoder() },
		Registry:   b,
		Prober:     probe.New(a.cfg.FFprobePath),
		CaptureExt: ffmpeg.CaptureExt,
	}
	if a.cfg.IdleMaxCPU > 0 {
		deps.Load = sysload.New()
	}
	session := harness.NewSession(&a.cfg, a.log, sink, deps)
	a.log.Debug(a.cfg.Verbose, "Session %s", session.ID)

	var m *metrics.Metrics
	if a.cfg.MetricsFile != "" {
		m = session.EnableMetrics()
	}

	var fx *harness.Fixtures
	if s.kind == matrix.KindEncode {
		fx, err = session.PrepareFixtures(ctx)
		if err != nil {
			a.log.Error("%v", err)
			return errFailed
		}
		defer func() {
			if cerr := fx.Close(); cerr != nil {
				a.log.Error("%v", cerr)
				retErr = errFailed
			}
		}()
	}

	st := session.RunSuite(ctx, cases, fx)

	if len(session.Results()) > 0 {
		a.log.Info("")
		if err := session.WriteSummary(a.out); err != nil {
			a.log.Warn("Cannot render summary: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		a.log.Error("Cannot close statistics file: %v", err)
	}
	if m != nil {
		if err := m.WriteTextfile(a.cfg.MetricsFile); err != nil {
			a.log.Error("Cannot write metrics: %v", err)
		} else {
			a.log.Info("Metrics: %s", a.cfg.MetricsFile)
		}
	}
	if a.cfg.PublishTarget != "" {
		a.publish(sink.Path())
	}

	if !st.OK() {
		return errFailed
	}
	return nil
}

// publish copies the stats file to the configured target. It runs after an
// interrupt too, so it gets its own deadline.
func (a *app) publish(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := storage.Open(ctx, a.cfg.PublishTarget, a.cfg.PublishProject)
	if err != nil {
		a.log.Error("Cannot open publish target: %v", err)
		return
	}
	defer store.Close()

	name, err := storage.Publish(ctx, store, path)
	if err != nil {
		a.log.Error("%v", err)
		return
	}
	a.log.Success("Published %s to %s", name, a.cfg.PublishTarget)
}

// validateFixtureDir refuses a fixture directory that resolves to the
// input directory, since fixtures are deleted at session end.
func (a *app) validateFixtureDir() error {
	inputAbs, err := absPath(a.cfg.InputDir)
	if err != nil {
		return errors.Wrapf(err, "input not found: %s", a.cfg.InputDir)
	}
	if err := os.MkdirAll(a.cfg.FixtureDir, 0o755); err != nil {
		return errors.Wrapf(err, "cannot create fixture directory: %s", a.cfg.FixtureDir)
	}
	fixtureAbs, err := absPath(a.cfg.FixtureDir)
	if err != nil {
		return errors.Wrapf(err, "cannot resolve fixture path: %s", a.cfg.FixtureDir)
	}
	return a.cfg.ValidateFixtureDir(inputAbs, fixtureAbs)
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of directory hierarchies.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
