// Package netmon schedules health checks of the target servers.
//
// On every interval the Monitor queues one requestworker.Request per target
// server of each enabled link group. It owns the queue and closes it when it
// stops, which is how the request worker learns there is no more work.
package netmon
