package service

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/aegis-id/aegis/core"
)

const ewmaAlpha = 0.2

// StatsCollector aggregates monotonic counters and processing-time
// averages across authentication attempts. All updates are atomic;
// a snapshot may observe a torn read across independent counters,
// which is acceptable for advisory statistics.
type StatsCollector struct {
	total      atomic.Uint64
	successful atomic.Uint64
	failed     atomic.Uint64
	totalNanos atomic.Int64
	ewmaBits   atomic.Uint64 // float64 bits of the EWMA in nanoseconds
}

// NewStatsCollector creates an empty collector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

// RecordAttempt adds one attempt to the counters and folds elapsed
// into the running and exponentially weighted averages.
func (s *StatsCollector) RecordAttempt(success bool, elapsed time.Duration) {
	s.total.Add(1)
	if success {
		s.successful.Add(1)
	} else {
		s.failed.Add(1)
	}
	s.totalNanos.Add(int64(elapsed))

	for {
		old := s.ewmaBits.Load()
		prev := math.Float64frombits(old)
		next := prev
		if old == 0 {
			next = float64(elapsed)
		} else {
			next = ewmaAlpha*float64(elapsed) + (1-ewmaAlpha)*prev
		}
		if s.ewmaBits.CompareAndSwap(old, math.Float64bits(next)) {
			return
		}
	}
}

// AverageProcessingTime returns the running mean over all attempts.
func (s *StatsCollector) AverageProcessingTime() time.Duration {
	total := s.total.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(uint64(s.totalNanos.Load()) / total)
}

// EWMA returns the exponentially weighted moving average of
// processing time.
func (s *StatsCollector) EWMA() time.Duration {
	return time.Duration(math.Float64frombits(s.ewmaBits.Load()))
}

// Snapshot builds a point-in-time view. activeSessions and
// lockedUsers are supplied by the caller from the authoritative
// stores; the collector never tracks them itself to avoid drift.
// Snapshot is read-only and does not perturb any counter.
func (s *StatsCollector) Snapshot(activeSessions, lockedUsers int) core.StatsSnapshot {
	return core.StatsSnapshot{
		TotalRequests:         s.total.Load(),
		SuccessfulRequests:    s.successful.Load(),
		FailedRequests:        s.failed.Load(),
		AverageProcessingTime: s.AverageProcessingTime(),
		ActiveSessions:        activeSessions,
		LockedUsers:           lockedUsers,
	}
}
