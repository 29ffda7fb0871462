// Package api serves the admin JSON-RPC 2.0 endpoint.
//
// The only method is getLinks, which returns the health report of one link
// group. Parameters are accepted by name or by position in the order
// workdir, summary, links, data, display, debug.
package api
