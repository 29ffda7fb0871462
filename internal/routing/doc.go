// Package routing holds the shared routing state: the configured link
// groups, their target servers and the statistics accumulated for each.
//
// All access goes through Table.View (read) or Table.Update (write) so the
// lock is released on every exit path.
package routing
