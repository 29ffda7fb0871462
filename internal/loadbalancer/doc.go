// Package loadbalancer selects the target server of a link group for each
// client request, skipping servers that are unhealthy or whose circuit
// breaker is open.
package loadbalancer
