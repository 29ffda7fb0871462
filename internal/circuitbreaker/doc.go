// Package circuitbreaker guards target servers against repeated transport
// failures of client traffic.
//
// A breaker has three states:
//
//   - CLOSED: requests pass through
//   - OPEN: requests blocked until the reset timeout elapses
//   - HALF-OPEN: one trial request decides between CLOSED and OPEN
//
// Health-check probes bypass breakers, so an open breaker never hides a
// recovered server from the health score.
package circuitbreaker
