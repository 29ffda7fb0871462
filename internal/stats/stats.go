package stats

import (
	"fmt"
	"math"
	"time"
)

// FailureClass classifies why a request to a target server failed.
type FailureClass int

const (
	FailureNetworkDown FailureClass = iota // transport error, no response
	FailureBadRequest                      // the server rejected the request (4xx)
	FailureOther                           // anything else (5xx, unexpected)
)

func (f FailureClass) String() string {
	switch f {
	case FailureNetworkDown:
		return "network_down"
	case FailureBadRequest:
		return "bad_request"
	case FailureOther:
		return "other"
	default:
		return "unknown"
	}
}

const (
	ewmaAlpha = 0.2

	// Health scores move toward these bounds on every outcome.
	scoreHealthy   = 100.0
	scoreUnhealthy = -100.0
)

// ServerStats holds the accumulated counters of one target server, or of a
// whole link group when used as the aggregate.
//
// It is a plain value: copying it yields an independent snapshot. Callers
// serialize mutations through the routing table lock.
type ServerStats struct {
	alias string

	successFirstAttempt uint64
	successOnRetry      uint64
	failNetworkDown     uint64
	failBadRequest      uint64
	failOthers          uint64

	ewmaLatencyMs float64
	hasLatency    bool
	healthScore   float64
	lastUpdate    time.Time
}

// New returns empty stats with no health sample yet.
func New(alias string) ServerStats {
	return ServerStats{
		alias:       alias,
		healthScore: math.NaN(),
	}
}

// Alias returns the display name of the server.
func (s *ServerStats) Alias() string {
	return s.alias
}

// RecordSuccess accounts a successful request and its latency.
// retried is true when the request only succeeded after a retry.
func (s *ServerStats) RecordSuccess(latency time.Duration, retried bool) {
	if retried {
		s.successOnRetry++
	} else {
		s.successFirstAttempt++
	}
	s.recordLatency(latency)
	s.moveScore(scoreHealthy)
	s.lastUpdate = time.Now()
}

// RecordFailure accounts a failed request.
func (s *ServerStats) RecordFailure(class FailureClass) {
	switch class {
	case FailureNetworkDown:
		s.failNetworkDown++
	case FailureBadRequest:
		s.failBadRequest++
	default:
		s.failOthers++
	}
	// A rejected request says nothing about the server being down.
	if class != FailureBadRequest {
		s.moveScore(scoreUnhealthy)
	}
	s.lastUpdate = time.Now()
}

// AccumStats returns the total number of requests and how many succeeded.
func (s *ServerStats) AccumStats() (requests, successes uint64) {
	successes = s.successFirstAttempt + s.successOnRetry
	requests = successes + s.failNetworkDown + s.failBadRequest + s.failOthers
	return requests, successes
}

func (s *ServerStats) SuccessOnFirstAttempt() uint64 {
	return s.successFirstAttempt
}

func (s *ServerStats) SuccessOnRetry() uint64 {
	return s.successOnRetry
}

// ClassifiedFailures returns the failure counters by class.
func (s *ServerStats) ClassifiedFailures() (networkDown, badRequest, others uint64) {
	return s.failNetworkDown, s.failBadRequest, s.failOthers
}

// HealthScore is positive when the server is healthy, its magnitude being
// the confidence. It is NaN until the first outcome is recorded.
func (s *ServerStats) HealthScore() float64 {
	return s.healthScore
}

// IsHealthy reports whether a health score counts as healthy: known, finite
// and positive.
func IsHealthy(score float64) bool {
	return !math.IsNaN(score) && !math.IsInf(score, 0) && score > 0
}

// AvgLatencyMs returns the EWMA latency in milliseconds, 0 without samples.
func (s *ServerStats) AvgLatencyMs() float64 {
	if !s.hasLatency {
		return 0
	}
	return s.ewmaLatencyMs
}

// LastUpdate returns when an outcome was last recorded.
func (s *ServerStats) LastUpdate() time.Time {
	return s.lastUpdate
}

func (s *ServerStats) recordLatency(latency time.Duration) {
	ms := float64(latency) / float64(time.Millisecond)
	if !s.hasLatency {
		s.ewmaLatencyMs = ms
		s.hasLatency = true
		return
	}
	//ewma = (1 - α) * ewma + α * latest
	s.ewmaLatencyMs = (1-ewmaAlpha)*s.ewmaLatencyMs + ewmaAlpha*ms
}

func (s *ServerStats) moveScore(target float64) {
	if math.IsNaN(s.healthScore) {
		s.healthScore = target
		return
	}
	s.healthScore = (1-ewmaAlpha)*s.healthScore + ewmaAlpha*target
}

func (s *ServerStats) String() string {
	requests, successes := s.AccumStats()
	lastUpdate := "never"
	if !s.lastUpdate.IsZero() {
		lastUpdate = s.lastUpdate.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("requests=%d successes=%d first=%d retry=%d down=%d bad=%d others=%d latency_ms=%.2f score=%.2f last_update=%s",
		requests, successes, s.successFirstAttempt, s.successOnRetry,
		s.failNetworkDown, s.failBadRequest, s.failOthers,
		s.AvgLatencyMs(), s.healthScore, lastUpdate)
}
