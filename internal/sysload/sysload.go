// Package sysload measures host CPU usage from /proc/stat counters, both
// over a codec run and while waiting for the machine to settle before one.
package sysload

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
)

// ErrNotIdle is returned by WaitForIdle when usage stays above the limit.
var ErrNotIdle = errors.New("cpu did not become idle")

// Sample is an aggregate CPU counter reading.
type Sample struct {
	Active float64 // Seconds spent in non-idle states.
	Total  float64
}

func sampleOf(t cpu.TimesStat) Sample {
	total := t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
	return Sample{Active: total - (t.Idle + t.Iowait), Total: total}
}

// Usage is the busy percentage between two samples, in [0, 100].
func Usage(begin, end Sample) (float64, error) {
	if end.Total <= begin.Total {
		return 100, errors.New("cpu counters did not advance")
	}
	return (end.Active - begin.Active) / (end.Total - begin.Total) * 100, nil
}

// Monitor reads CPU counters.
type Monitor struct {
	times    func(ctx context.Context, perCPU bool) ([]cpu.TimesStat, error)
	interval time.Duration
}

// New returns a Monitor over the host's counters that polls once a second
// while waiting for idle.
func New() *Monitor {
	return &Monitor{times: cpu.TimesWithContext, interval: time.Second}
}

// Snapshot reads the aggregate counters.
func (m *Monitor) Snapshot(ctx context.Context) (Sample, error) {
	ts, err := m.times(ctx, false)
	if err != nil {
		return Sample{}, errors.Wrap(err, "read cpu times")
	}
	if len(ts) == 0 {
		return Sample{}, errors.New("no cpu times reported")
	}
	return sampleOf(ts[0]), nil
}

// Span measures usage from Begin until End. A failed reading yields -1.
type Span struct {
	m     *Monitor
	begin Sample
	err   error
}

// Begin starts a measurement.
func (m *Monitor) Begin(ctx context.Context) *Span {
	s, err := m.Snapshot(ctx)
	return &Span{m: m, begin: s, err: err}
}

// End returns the busy percentage since Begin, or -1 when the counters
// could not be read or did not advance.
func (s *Span) End(ctx context.Context) float64 {
	if s.err != nil {
		return -1
	}
	end, err := s.m.Snapshot(ctx)
	if err != nil {
		return -1
	}
	u, err := Usage(s.begin, end)
	if err != nil {
		return -1
	}
	return u
}

// MeasureUsage samples usage over d.
func (m *Monitor) MeasureUsage(ctx context.Context, d time.Duration) (float64, error) {
	begin, err := m.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	end, err := m.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return Usage(begin, end)
}

// WaitForIdle polls until usage over one interval drops below maxUsage or
// timeout elapses. report, when non-nil, receives every measurement.
func (m *Monitor) WaitForIdle(ctx context.Context, timeout time.Duration, maxUsage float64, report func(usage float64)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	last := 100.0
	for {
		usage, err := m.MeasureUsage(ctx, m.interval)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrapf(ErrNotIdle, "last usage %.1f%%, want below %.1f%%", last, maxUsage)
			}
			return err
		}
		last = usage
		if report != nil {
			report(usage)
		}
		if usage < maxUsage {
			return nil
		}
	}
}
