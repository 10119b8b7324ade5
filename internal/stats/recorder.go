package stats

import (
	"sync"
	"time"
)

// Timing is the measured profile of one codec run.
type Timing struct {
	Setup      time.Duration // Codec configuration until ready for input.
	Destroy    time.Duration // Release of the codec instance.
	FirstFrame time.Duration // Process start to first output frame.
	Min        time.Duration // Shortest gap between consecutive outputs.
	Max        time.Duration // Longest gap between consecutive outputs.
	Average    time.Duration // Total / Frames.
	Total      time.Duration // Process start to last output frame.
	Frames     int           // Output frames observed.
}

// Recorder collects lifecycle timestamps for one codec run. Safe for use
// from the backend's feeder and drainer goroutines.
type Recorder struct {
	mu           sync.Mutex
	now          func() time.Time
	setupStart   time.Time
	setup        time.Duration
	processStart time.Time
	outputs      []time.Time
	releaseStart time.Time
	destroy      time.Duration
}

// NewRecorder returns a Recorder using the wall clock.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// BeginSetup marks the start of codec configuration.
func (r *Recorder) BeginSetup() {
	r.mu.Lock()
	r.setupStart = r.now()
	r.mu.Unlock()
}

// EndSetup marks the codec ready for input.
func (r *Recorder) EndSetup() {
	r.mu.Lock()
	if !r.setupStart.IsZero() {
		r.setup = r.now().Sub(r.setupStart)
	}
	r.mu.Unlock()
}

// BeginProcess marks the first input submission.
func (r *Recorder) BeginProcess() {
	r.mu.Lock()
	r.processStart = r.now()
	r.outputs = r.outputs[:0]
	r.mu.Unlock()
}

// MarkOutput records the arrival of one output frame.
func (r *Recorder) MarkOutput() {
	r.mu.Lock()
	r.outputs = append(r.outputs, r.now())
	r.mu.Unlock()
}

// BeginRelease marks the start of codec teardown.
func (r *Recorder) BeginRelease() {
	r.mu.Lock()
	r.releaseStart = r.now()
	r.mu.Unlock()
}

// EndRelease marks the codec released.
func (r *Recorder) EndRelease() {
	r.mu.Lock()
	if !r.releaseStart.IsZero() {
		r.destroy = r.now().Sub(r.releaseStart)
	}
	r.mu.Unlock()
}

// Reset clears everything but the clock so the Recorder can be reused for
// another run.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setupStart, r.processStart, r.releaseStart = time.Time{}, time.Time{}, time.Time{}
	r.setup, r.destroy = 0, 0
	r.outputs = nil
}

// Timing computes the profile so far. Output-derived fields are zero when
// no frame was produced.
func (r *Recorder) Timing() Timing {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := Timing{Setup: r.setup, Destroy: r.destroy, Frames: len(r.outputs)}
	if len(r.outputs) == 0 || r.processStart.IsZero() {
		return t
	}

	t.Total = r.outputs[len(r.outputs)-1].Sub(r.processStart)
	t.FirstFrame = r.outputs[0].Sub(r.processStart)
	t.Average = t.Total / time.Duration(len(r.outputs))

	prev := r.processStart
	t.Min = time.Duration(1<<63 - 1)
	for _, ts := range r.outputs {
		gap := ts.Sub(prev)
		prev = ts
		if gap < t.Min {
			t.Min = gap
		}
		if gap > t.Max {
			t.Max = gap
		}
	}
	return t
}
