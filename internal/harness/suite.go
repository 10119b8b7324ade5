package harness

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/backmassage/codecbench/internal/display"
	"github.com/backmassage/codecbench/internal/matrix"
	"github.com/backmassage/codecbench/internal/metrics"
)

// RunSuite runs cases in order, one at a time. fx is required for encode
// cases and ignored otherwise. Failures are counted, not returned.
func (s *Session) RunSuite(ctx context.Context, cases []matrix.Case, fx *Fixtures) RunStats {
	s.Stats.Total = len(cases)
	s.logInventory(cases, fx)

	for i, c := range cases {
		s.Stats.Current = i + 1
		if ctx.Err() != nil {
			s.log.Warn("Interrupted")
			break
		}
		s.log.Info("[%d/%d] %s", i+1, len(cases), c.Name())
		s.tally(c, s.runCase(ctx, c, fx))
	}

	s.logSummary()
	return s.Stats
}

func (s *Session) runCase(ctx context.Context, c matrix.Case, fx *Fixtures) error {
	switch c.Kind {
	case matrix.KindDecode:
		return s.RunDecodeCase(ctx, c)
	case matrix.KindEncode:
		return s.RunEncodeCase(ctx, c, fx)
	case matrix.KindExtract:
		return s.RunExtractCase(ctx, c)
	}
	return errors.Errorf("unknown case kind %v", c.Kind)
}

func (s *Session) tally(c matrix.Case, err error) {
	outcome := metrics.OutcomePass
	switch {
	case errors.Is(err, ErrAssetMissing):
		// Already warned when the asset was looked up.
		s.Stats.Skipped++
		outcome = metrics.OutcomeSkip
	case err != nil:
		s.log.WithCase(c.Name()).Error("FAILED: %v", err)
		s.Stats.Failed++
		outcome = metrics.OutcomeFail
	default:
		s.Stats.Passed++
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.Case(c.Kind.String(), outcome)
	}
}

func (s *Session) logInventory(cases []matrix.Case, fx *Fixtures) {
	if len(cases) == 0 {
		return
	}
	dir := s.cfg.InputDir
	if cases[0].Kind == matrix.KindEncode {
		dir = s.cfg.FixtureDir
		if fx != nil {
			dir = fx.Dir
		}
	}
	found, err := Discover(dir)
	if err != nil {
		s.log.Warn("Cannot list %s: %v", dir, err)
		return
	}

	inputs := make([]string, len(cases))
	for i, c := range cases {
		inputs[i] = c.Input
	}
	missing := missingAssets(inputs, found)
	s.log.Info("Running %d cases; %d asset(s) missing from %s", len(cases), len(missing), dir)
	for _, m := range missing {
		s.log.Debug(s.cfg.Verbose, "  missing: %s", m)
	}
}

func (s *Session) logSummary() {
	st := s.Stats
	s.log.Info("==============================")
	s.log.Info("Done: %d passed, %d skipped, %d failed", st.Passed, st.Skipped, st.Failed)
	s.log.Info("Runs recorded: %d (%d with codec errors), %s processed",
		st.Runs, st.CodecErrors, display.FormatBytes(st.TotalBytes))
	s.log.Info("Statistics: %s", s.sink.Path())
}

// WriteSummary renders one table row per recorded run.
func (s *Session) WriteSummary(w io.Writer) error {
	headers := []string{"FILE", "OP", "CODEC", "MODE", "STATUS", "TOTAL", "FIRST FRAME", "THROUGHPUT", "CPU"}
	rows := make([][]string, 0, len(s.results))
	for _, r := range s.results {
		cpu := "-"
		if r.CPUPercent >= 0 {
			cpu = fmt.Sprintf("%.1f%%", r.CPUPercent)
		}
		rows = append(rows, []string{
			r.Reference,
			r.Operation,
			r.Codec,
			r.Mode,
			fmt.Sprint(r.Status),
			display.FormatDuration(r.Timing.Total),
			display.FormatDuration(r.Timing.FirstFrame),
			display.FormatThroughput(r.Throughput()),
			cpu,
		})
	}
	return display.RenderTable(w, headers, rows)
}
