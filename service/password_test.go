package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-id/aegis/core"
	"github.com/aegis-id/aegis/service"
)

func TestHashPasswordProducesDistinctSalts(t *testing.T) {
	h1, s1, err := service.HashPassword("hunter2", fastArgon2)
	require.NoError(t, err)
	h2, s2, err := service.HashPassword("hunter2", fastArgon2)
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyMatched(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-horse")

	status, err := f.verifier.Verify(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, service.VerifyMatched, status)
}

func TestVerifyMismatchRecordsFailure(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-horse")
	ctx := context.Background()

	status, err := f.verifier.Verify(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.Equal(t, service.VerifyMismatch, status)

	rec, err := f.creds.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.FailedAttempts)
}

func TestVerifyMatchClearsFailures(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-horse")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.verifier.Verify(ctx, "alice", "wrong")
		require.NoError(t, err)
	}

	status, err := f.verifier.Verify(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, service.VerifyMatched, status)

	rec, err := f.creds.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.FailedAttempts)
}

func TestVerifyNoSuchUser(t *testing.T) {
	f := newFixture(t)

	status, err := f.verifier.Verify(context.Background(), "nobody", "whatever")
	require.NoError(t, err)
	assert.Equal(t, service.VerifyNoSuchUser, status)
}

func TestVerifyLockedSkipsRealDigest(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-horse")
	ctx := context.Background()

	until := f.clock.Now().Add(10 * time.Minute)
	require.NoError(t, f.creds.Update(ctx, "alice", func(u *core.UserRecord) error {
		u.LockedUntil = &until
		return nil
	}))

	status, err := f.verifier.Verify(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, service.VerifyLocked, status)

	// The locked path must not count as a consecutive failure.
	rec, err := f.creds.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.FailedAttempts)
}
