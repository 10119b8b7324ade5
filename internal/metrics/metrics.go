// Package metrics keeps Prometheus counters and histograms for a session
// and writes them to a node-exporter textfile when the session ends.
package metrics

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/backmassage/codecbench/internal/stats"
)

// Case outcomes.
const (
	OutcomePass = "pass"
	OutcomeFail = "fail"
	OutcomeSkip = "skip"
)

// Metrics holds all session metrics on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	// Run metrics
	Runs          *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	SetupDuration *prometheus.HistogramVec
	FirstFrame    *prometheus.HistogramVec
	Bytes         *prometheus.CounterVec
	Frames        *prometheus.CounterVec
	CPUUsage      *prometheus.GaugeVec

	// Case metrics
	Cases *prometheus.CounterVec

	// Session
	Info *prometheus.GaugeVec
}

// New creates and registers all metrics. session labels the info gauge.
func New(session string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	m := &Metrics{
		reg: reg,

		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codecbench_runs_total",
			Help: "Codec runs by operation, mode and status",
		}, []string{"operation", "mode", "status"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codecbench_run_duration_seconds",
			Help:    "Processing time from first input to last output",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		}, []string{"operation"}),
		SetupDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codecbench_setup_duration_seconds",
			Help:    "Codec setup time",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"operation"}),
		FirstFrame: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codecbench_first_frame_seconds",
			Help:    "Time from first input to first output",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"operation"}),
		Bytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codecbench_bytes_processed_total",
			Help: "Input bytes handed to codecs",
		}, []string{"operation"}),
		Frames: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codecbench_output_frames_total",
			Help: "Output frames produced by codecs",
		}, []string{"operation"}),
		CPUUsage: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "codecbench_last_run_cpu_percent",
			Help: "Host CPU usage during the most recent run",
		}, []string{"operation"}),

		Cases: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codecbench_cases_total",
			Help: "Test cases by suite and outcome",
		}, []string{"suite", "outcome"}),

		Info: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "codecbench_session_info",
			Help: "Constant 1, labelled with the session id",
		}, []string{"session"}),
	}
	m.Info.WithLabelValues(session).Set(1)
	return m
}

// Observe records one statistics row.
func (m *Metrics) Observe(r stats.Result) {
	m.Runs.WithLabelValues(r.Operation, r.Mode, strconv.Itoa(r.Status)).Inc()
	m.RunDuration.WithLabelValues(r.Operation).Observe(r.Timing.Total.Seconds())
	m.SetupDuration.WithLabelValues(r.Operation).Observe(r.Timing.Setup.Seconds())
	if r.Timing.Frames > 0 {
		m.FirstFrame.WithLabelValues(r.Operation).Observe(r.Timing.FirstFrame.Seconds())
	}
	m.Bytes.WithLabelValues(r.Operation).Add(float64(r.TotalBytes))
	m.Frames.WithLabelValues(r.Operation).Add(float64(r.Timing.Frames))
	if r.CPUPercent >= 0 {
		m.CPUUsage.WithLabelValues(r.Operation).Set(r.CPUPercent)
	}
}

// Case records a case outcome.
func (m *Metrics) Case(suite, outcome string) {
	m.Cases.WithLabelValues(suite, outcome).Inc()
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// WriteTextfile writes all metrics in text exposition format to path,
// atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return errors.Wrapf(err, "write metrics to %s", path)
	}
	return nil
}
