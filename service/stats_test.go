package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aegis-id/aegis/service"
)

func TestStatsCounters(t *testing.T) {
	s := service.NewStatsCollector()

	s.RecordAttempt(true, 10*time.Millisecond)
	s.RecordAttempt(false, 20*time.Millisecond)
	s.RecordAttempt(true, 30*time.Millisecond)

	snap := s.Snapshot(4, 2)
	assert.Equal(t, uint64(3), snap.TotalRequests)
	assert.Equal(t, uint64(2), snap.SuccessfulRequests)
	assert.Equal(t, uint64(1), snap.FailedRequests)
	assert.Equal(t, 20*time.Millisecond, snap.AverageProcessingTime)
	assert.Equal(t, 4, snap.ActiveSessions)
	assert.Equal(t, 2, snap.LockedUsers)
}

func TestStatsEmptySnapshot(t *testing.T) {
	s := service.NewStatsCollector()

	snap := s.Snapshot(0, 0)
	assert.Zero(t, snap.TotalRequests)
	assert.Zero(t, snap.AverageProcessingTime)
}

func TestSnapshotDoesNotPerturbCounters(t *testing.T) {
	s := service.NewStatsCollector()
	s.RecordAttempt(true, time.Millisecond)

	first := s.Snapshot(0, 0)
	second := s.Snapshot(0, 0)
	assert.Equal(t, first, second)
}

func TestStatsConcurrentUpdates(t *testing.T) {
	s := service.NewStatsCollector()

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		success := i%2 == 0
		go func() {
			defer wg.Done()
			s.RecordAttempt(success, time.Millisecond)
		}()
	}
	wg.Wait()

	snap := s.Snapshot(0, 0)
	assert.Equal(t, uint64(n), snap.TotalRequests)
	assert.Equal(t, uint64(n/2), snap.SuccessfulRequests)
	assert.Equal(t, uint64(n/2), snap.FailedRequests)
}

func TestEWMATracksLatency(t *testing.T) {
	s := service.NewStatsCollector()

	for i := 0; i < 50; i++ {
		s.RecordAttempt(true, 10*time.Millisecond)
	}
	ewma := s.EWMA()
	assert.InDelta(t, float64(10*time.Millisecond), float64(ewma), float64(time.Millisecond))
}
