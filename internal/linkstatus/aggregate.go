package linkstatus

import (
	"math"

	"github.com/angeloszaimis/multilink-proxy/internal/stats"
)

// Status is the overall state of a link group.
type Status string

const (
	StatusDisabled Status = "DISABLED"
	StatusNoConfig Status = "NO CONFIG"
	StatusDown     Status = "DOWN"
	StatusDegraded Status = "DEGRADED"
	StatusOK       Status = "OK"
)

// LinkMetrics are the derived metrics of one target server. Percentages
// that cannot be computed are NaN.
type LinkMetrics struct {
	Alias       string
	Requests    uint64
	SuccessPct  float64
	HealthScore float64
	RespTimeMs  float64
	LoadPct     float64
}

// Metrics are the derived metrics of a link group. Links is index-aligned
// with the servers passed to Aggregate.
type Metrics struct {
	Links         []LinkMetrics
	TotalRequests uint64
	Healthy       int
}

// Aggregate derives per-link metrics from a snapshot of server stats.
func Aggregate(servers []stats.ServerStats) Metrics {
	m := Metrics{
		Links: make([]LinkMetrics, len(servers)),
	}

	for i := range servers {
		s := &servers[i]
		requests, successes := s.AccumStats()

		link := LinkMetrics{
			Alias:       s.Alias(),
			Requests:    requests,
			SuccessPct:  math.NaN(),
			HealthScore: s.HealthScore(),
			RespTimeMs:  s.AvgLatencyMs(),
			LoadPct:     math.NaN(),
		}
		if requests != 0 {
			link.SuccessPct = float64(successes) * 100 / float64(requests)
		}
		if stats.IsHealthy(link.HealthScore) {
			m.Healthy++
		}

		m.TotalRequests += requests
		m.Links[i] = link
	}

	if m.TotalRequests != 0 {
		for i := range m.Links {
			m.Links[i].LoadPct = float64(m.Links[i].Requests) * 100 / float64(m.TotalRequests)
		}
	}

	return m
}

// StatusOf classifies a link group. The rules are evaluated in order and
// the first match wins.
func StatusOf(found bool, servers, healthy int) Status {
	switch {
	case !found:
		return StatusDisabled
	case servers == 0:
		return StatusNoConfig
	case healthy == 0:
		return StatusDown
	case healthy*100/servers > 50:
		return StatusOK
	default:
		return StatusDegraded
	}
}
