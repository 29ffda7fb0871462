// Package strategy picks the target server of a link group that receives the
// next client request. Available algorithms:
//
//   - round-robin: sequential distribution across target servers
//   - random: uniform random pick
//   - least-conn: fewest in-flight requests
//   - least-response: lowest EWMA response time weighted by in-flight requests
//
// Strategies only choose among the candidates they are given; filtering out
// unhealthy or tripped servers is the caller's job.
package strategy
