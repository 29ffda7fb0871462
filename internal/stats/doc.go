// Package stats accumulates per-server request counters: successes on first
// attempt or after retry, classified failures, an EWMA latency and a signed
// health score.
package stats
