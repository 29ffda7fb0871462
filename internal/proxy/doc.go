// Package proxy forwards the JSON-RPC traffic of one link group to its
// target servers.
//
// Client requests go to the server picked by the load balancer and are
// retried once on another server after a transport error. Requests carrying
// the server index header are health-check probes: they go to exactly that
// server, bypass circuit breakers and are never retried. Every attempt is
// reported to the stats collector as an event.
package proxy
