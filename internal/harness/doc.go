// Package harness runs the benchmark suites: it locates assets, extracts
// frames, drives a codec backend through one run per case, codec and
// mode, validates the status and appends a statistics row per run.
//
// Files:
//   - session.go: Session, dependencies, per-run plumbing
//   - cases.go: decode, encode (with codec fan-out) and extract cases
//   - fixtures.go: raw encoder inputs decoded at session start
//   - suite.go: suite loop and summary
//   - discover.go: asset inventory
//   - stats.go: RunStats
package harness
