package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aegis-id/aegis/core"
	"github.com/aegis-id/aegis/ports"
)

const (
	// DefaultLockoutThreshold is the number of consecutive failures
	// that triggers a lock.
	DefaultLockoutThreshold = 5

	// DefaultLockoutDuration is the base lock window. It doubles per
	// completed lock cycle.
	DefaultLockoutDuration = 15 * time.Minute

	// DefaultLockoutMax caps the backoff growth.
	DefaultLockoutMax = 24 * time.Hour
)

// LockoutPolicy tracks consecutive authentication failures per user
// and computes lock transitions. Lock expiry is evaluated lazily at
// read time; there is no background sweep.
type LockoutPolicy struct {
	creds     ports.CredentialStore
	clock     ports.Clock
	events    ports.EventPublisher
	logger    *slog.Logger
	threshold int
	base      time.Duration
	max       time.Duration
}

// NewLockoutPolicy creates a policy over the given credential store.
// events and logger may be nil.
func NewLockoutPolicy(creds ports.CredentialStore, clock ports.Clock, events ports.EventPublisher, logger *slog.Logger, threshold int, base, max time.Duration) *LockoutPolicy {
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	if base <= 0 {
		base = DefaultLockoutDuration
	}
	if max <= 0 {
		max = DefaultLockoutMax
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LockoutPolicy{
		creds:     creds,
		clock:     clock,
		events:    events,
		logger:    logger,
		threshold: threshold,
		base:      base,
		max:       max,
	}
}

// RecordFailure increments the user's consecutive failure count and
// locks the account once the threshold is reached. The counter resets
// at lock time so the next cycle counts from zero.
func (p *LockoutPolicy) RecordFailure(ctx context.Context, username string) error {
	var lockedUntil *time.Time
	err := p.creds.Update(ctx, username, func(u *core.UserRecord) error {
		u.FailedAttempts++
		if u.FailedAttempts >= p.threshold {
			u.LockStage++
			until := p.clock.Now().Add(p.lockDuration(u.LockStage))
			u.LockedUntil = &until
			u.FailedAttempts = 0
			lockedUntil = &until
		}
		return nil
	})
	if err != nil {
		return err
	}
	if lockedUntil != nil {
		p.logger.Warn("account locked", "username", username, "until", *lockedUntil)
		if p.events != nil {
			if err := p.events.PublishLockout(ctx, username, *lockedUntil); err != nil {
				p.logger.Warn("failed to publish lockout event", "username", username, "error", err)
			}
		}
	}
	return nil
}

// RecordSuccess clears the failure counter, the lock, and the backoff
// stage.
func (p *LockoutPolicy) RecordSuccess(ctx context.Context, username string) error {
	return p.creds.Update(ctx, username, func(u *core.UserRecord) error {
		u.FailedAttempts = 0
		u.LockStage = 0
		u.LockedUntil = nil
		return nil
	})
}

// IsLocked reports whether the user's lock window is still open.
// The first read past the lock expiry implicitly unlocks the account.
// Unknown users report unlocked; the caller's verification path is
// responsible for not revealing their absence.
func (p *LockoutPolicy) IsLocked(ctx context.Context, username string) (bool, error) {
	rec, err := p.creds.Get(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrUnknownUser) {
			return false, nil
		}
		return false, err
	}
	if rec.LockedUntil == nil {
		return false, nil
	}
	if p.clock.Now().Before(*rec.LockedUntil) {
		return true, nil
	}
	// Lock expired; clear it so LockedCount stays accurate. The
	// backoff stage survives until the next successful login.
	err = p.creds.Update(ctx, username, func(u *core.UserRecord) error {
		if u.LockedUntil != nil && !p.clock.Now().Before(*u.LockedUntil) {
			u.LockedUntil = nil
		}
		return nil
	})
	if err != nil && !errors.Is(err, core.ErrUnknownUser) {
		return false, err
	}
	return false, nil
}

func (p *LockoutPolicy) lockDuration(stage int) time.Duration {
	d := p.base
	for i := 1; i < stage; i++ {
		d *= 2
		if d >= p.max {
			return p.max
		}
	}
	if d > p.max {
		return p.max
	}
	return d
}
