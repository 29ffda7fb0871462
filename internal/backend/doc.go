// Package backend implements reverse proxy functionality for target servers.
// It provides connection tracking, response time monitoring, health and
// circuit breaker gating, and request forwarding that reports transport
// errors to the caller instead of answering the client.
package backend
