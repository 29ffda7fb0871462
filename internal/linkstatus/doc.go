// Package linkstatus builds the health report of a link group.
//
// A report is produced in three steps. Reader copies the stats of the group
// out of the routing table under a single read lock. Aggregate derives the
// per-link metrics and the healthy count from that copy, and StatusOf
// classifies the group. Builder then assembles the requested sections (raw
// data, a fixed-width display rendering, a debug dump) without touching
// shared state again.
package linkstatus
