// Package requestworker issues health-check probes on behalf of the network
// monitor.
//
// A Worker consumes Requests in arrival order and sends one probe per
// request to the local proxy port of a link group, tagged with the index of
// the target server to exercise. The probe result is never inspected: the
// proxy records the outcome of the forwarded request like any other traffic,
// and that is what the stats registry derives health from.
package requestworker
