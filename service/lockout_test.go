package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-id/aegis/adapters/store"
	"github.com/aegis-id/aegis/core"
	"github.com/aegis-id/aegis/service"
)

func TestLockAfterThresholdFailures(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-horse")
	ctx := context.Background()

	for i := 0; i < service.DefaultLockoutThreshold; i++ {
		require.NoError(t, f.lockout.RecordFailure(ctx, "alice"))
	}

	locked, err := f.lockout.IsLocked(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestBelowThresholdStaysUnlocked(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-horse")
	ctx := context.Background()

	for i := 0; i < service.DefaultLockoutThreshold-1; i++ {
		require.NoError(t, f.lockout.RecordFailure(ctx, "alice"))
	}

	locked, err := f.lockout.IsLocked(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestLockExpiresLazily(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-horse")
	ctx := context.Background()

	for i := 0; i < service.DefaultLockoutThreshold; i++ {
		require.NoError(t, f.lockout.RecordFailure(ctx, "alice"))
	}

	f.clock.Advance(service.DefaultLockoutDuration + time.Second)

	locked, err := f.lockout.IsLocked(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, locked)

	// The first read past expiry clears the lock on the record.
	rec, err := f.creds.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, rec.LockedUntil)
}

func TestBackoffDoublesPerLockCycle(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-horse")
	ctx := context.Background()

	lockAndMeasure := func() time.Duration {
		for i := 0; i < service.DefaultLockoutThreshold; i++ {
			require.NoError(t, f.lockout.RecordFailure(ctx, "alice"))
		}
		rec, err := f.creds.Get(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, rec.LockedUntil)
		return rec.LockedUntil.Sub(f.clock.Now())
	}

	first := lockAndMeasure()
	assert.Equal(t, service.DefaultLockoutDuration, first)

	f.clock.Advance(first + time.Second)
	locked, err := f.lockout.IsLocked(ctx, "alice")
	require.NoError(t, err)
	require.False(t, locked)

	second := lockAndMeasure()
	assert.Equal(t, 2*service.DefaultLockoutDuration, second)
}

func TestRecordSuccessResetsStage(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-horse")
	ctx := context.Background()

	for i := 0; i < service.DefaultLockoutThreshold; i++ {
		require.NoError(t, f.lockout.RecordFailure(ctx, "alice"))
	}
	require.NoError(t, f.lockout.RecordSuccess(ctx, "alice"))

	rec, err := f.creds.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, rec.FailedAttempts)
	assert.Zero(t, rec.LockStage)
	assert.Nil(t, rec.LockedUntil)
}

func TestConcurrentFailuresLoseNoUpdates(t *testing.T) {
	clock := newFakeClock()
	creds := store.NewMemoryCredentialStore()
	// High threshold so no lock interferes with the exact count.
	lockout := service.NewLockoutPolicy(creds, clock, nil, nil, 1000,
		service.DefaultLockoutDuration, service.DefaultLockoutMax)

	ctx := context.Background()
	require.NoError(t, creds.Put(ctx, &core.UserRecord{Username: "alice"}))

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = lockout.RecordFailure(ctx, "alice")
		}()
	}
	wg.Wait()

	rec, err := creds.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, n, rec.FailedAttempts)
}

func TestConcurrentFailuresSingleLockDecision(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-horse")
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = f.lockout.RecordFailure(ctx, "alice")
		}()
	}
	wg.Wait()

	locked, err := f.lockout.IsLocked(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, locked)
}
