// Package stats measures codec runs and persists one row per run.
//
// A [Recorder] is driven by a codec backend through its lifecycle (setup,
// process, each output frame, release). The harness turns its [Timing]
// into a [Result] and appends it to the session [Sink], a CSV file whose
// header is written when the sink is opened and never again.
package stats
