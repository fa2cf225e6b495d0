package ports

import (
	"context"
	"time"

	"github.com/aegis-id/aegis/core"
)

// CredentialStore persists per-user credential state. Implementations
// must serialize concurrent mutation of a single record while allowing
// unrelated records to proceed without contention.
type CredentialStore interface {
	// Get returns a copy of the record, or core.ErrUnknownUser.
	Get(ctx context.Context, username string) (*core.UserRecord, error)

	// Put creates or replaces a record.
	Put(ctx context.Context, user *core.UserRecord) error

	// Update applies fn to the record under the store's per-record
	// serialization. fn receives a mutable copy that is persisted
	// when fn returns nil. Returns core.ErrUnknownUser if absent.
	Update(ctx context.Context, username string, fn func(*core.UserRecord) error) error

	// LockedCount returns the number of users whose lock window is
	// still open at now.
	LockedCount(ctx context.Context, now time.Time) (int, error)
}

// SessionStore persists session records keyed by session ID.
type SessionStore interface {
	// Put creates or replaces a session record.
	Put(ctx context.Context, session *core.Session) error

	// Get returns a copy of the session, or core.ErrUnknownToken.
	Get(ctx context.Context, id string) (*core.Session, error)

	// Revoke marks a session revoked. Revoking an unknown or already
	// revoked session is a no-op, not an error.
	Revoke(ctx context.Context, id string) error

	// ActiveCount returns the number of non-revoked, non-expired
	// sessions at now.
	ActiveCount(ctx context.Context, now time.Time) (int, error)

	// DeleteExpired reclaims sessions past their expiry and returns
	// how many were removed. Correctness never depends on it being
	// called; it only bounds memory.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// ChallengeStore persists at most one live challenge per username.
type ChallengeStore interface {
	// Put stores a challenge, overwriting any prior one for the user.
	Put(ctx context.Context, challenge *core.Challenge) error

	// Update applies fn to the user's challenge under the store's
	// per-record serialization. Returns core.ErrChallengeNotFound
	// if absent.
	Update(ctx context.Context, username string, fn func(*core.Challenge) error) error

	// DeleteExpired reclaims challenges past their expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
