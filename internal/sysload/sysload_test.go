package sysload

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns successive counter readings, advancing by the given
// busy and idle seconds per call.
func scripted(busy, idle float64) func(context.Context, bool) ([]cpu.TimesStat, error) {
	var user, idleAcc float64
	return func(context.Context, bool) ([]cpu.TimesStat, error) {
		user += busy
		idleAcc += idle
		return []cpu.TimesStat{{CPU: "cpu-total", User: user, Idle: idleAcc}}, nil
	}
}

func TestUsage(t *testing.T) {
	u, err := Usage(Sample{Active: 10, Total: 100}, Sample{Active: 35, Total: 200})
	require.NoError(t, err)
	assert.InDelta(t, 25.0, u, 1e-9)

	_, err = Usage(Sample{Total: 5}, Sample{Total: 5})
	assert.Error(t, err)
}

func TestSampleOf_IowaitCountsAsIdle(t *testing.T) {
	s := sampleOf(cpu.TimesStat{User: 3, System: 1, Idle: 4, Iowait: 2})
	assert.Equal(t, 10.0, s.Total)
	assert.Equal(t, 4.0, s.Active)
}

func TestSpan(t *testing.T) {
	m := &Monitor{times: scripted(1, 3), interval: time.Millisecond}
	span := m.Begin(context.Background())
	assert.InDelta(t, 25.0, span.End(context.Background()), 1e-9)

	broken := &Monitor{times: func(context.Context, bool) ([]cpu.TimesStat, error) {
		return nil, errors.New("no /proc")
	}}
	assert.Equal(t, -1.0, broken.Begin(context.Background()).End(context.Background()))
}

func TestWaitForIdle(t *testing.T) {
	var seen []float64
	m := &Monitor{times: scripted(1, 9), interval: time.Millisecond}
	err := m.WaitForIdle(context.Background(), time.Second, 50, func(u float64) { seen = append(seen, u) })
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.InDelta(t, 10.0, seen[0], 1e-9)
}

func TestWaitForIdle_Busy(t *testing.T) {
	m := &Monitor{times: scripted(9, 1), interval: 5 * time.Millisecond}
	err := m.WaitForIdle(context.Background(), 30*time.Millisecond, 50, nil)
	assert.True(t, errors.Is(err, ErrNotIdle), "got %v", err)
}
