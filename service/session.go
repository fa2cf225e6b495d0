package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aegis-id/aegis/core"
	"github.com/aegis-id/aegis/ports"
)

const (
	// DefaultBasicTTL is the lifetime of a basic session.
	DefaultBasicTTL = time.Hour

	// DefaultElevatedTTL is the lifetime of an elevated session.
	// Elevated trust decays faster than basic trust.
	DefaultElevatedTTL = 15 * time.Minute
)

// SessionManager issues, validates, and revokes sessions. The bearer
// token is produced by the tokenizer; the stored record remains the
// single source of truth, so validation never accepts a token whose
// record is revoked or expired.
type SessionManager struct {
	store       ports.SessionStore
	tokenizer   ports.Tokenizer
	clock       ports.Clock
	basicTTL    time.Duration
	elevatedTTL time.Duration
	draining    atomic.Bool
}

// NewSessionManager creates a session manager.
func NewSessionManager(store ports.SessionStore, tokenizer ports.Tokenizer, clock ports.Clock, basicTTL, elevatedTTL time.Duration) *SessionManager {
	if basicTTL <= 0 {
		basicTTL = DefaultBasicTTL
	}
	if elevatedTTL <= 0 {
		elevatedTTL = DefaultElevatedTTL
	}
	return &SessionManager{
		store:       store,
		tokenizer:   tokenizer,
		clock:       clock,
		basicTTL:    basicTTL,
		elevatedTTL: elevatedTTL,
	}
}

// Issue creates a session at the given level and returns its bearer
// token. Issuance is refused while the manager is draining.
func (m *SessionManager) Issue(ctx context.Context, username string, level core.AuthLevel) (string, *core.Session, error) {
	if m.draining.Load() {
		return "", nil, core.ErrDraining
	}

	id, err := newSessionID()
	if err != nil {
		return "", nil, err
	}

	ttl := m.basicTTL
	if level >= core.LevelElevated {
		ttl = m.elevatedTTL
	}

	now := m.clock.Now()
	session := &core.Session{
		ID:        id,
		Username:  username,
		Level:     level,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := m.store.Put(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}

	token, err := m.tokenizer.SessionToToken(session)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode token: %w", err)
	}
	return token, session, nil
}

// Validate resolves a bearer token to its live session. It fails with
// core.ErrInvalidToken, core.ErrUnknownToken, core.ErrTokenRevoked, or
// core.ErrTokenExpired. Validation never extends the expiry.
func (m *SessionManager) Validate(ctx context.Context, token string) (*core.Session, error) {
	id, err := m.tokenizer.TokenToSessionID(token)
	if err != nil {
		return nil, core.ErrInvalidToken
	}
	session, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Revoked {
		return nil, core.ErrTokenRevoked
	}
	if !m.clock.Now().Before(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}
	return session, nil
}

// Revoke marks the token's session revoked. It is idempotent: a
// malformed, unknown, expired, or already-revoked token is treated as
// already dead and reported as success. The revoked session is
// returned when one existed, for event publication.
func (m *SessionManager) Revoke(ctx context.Context, token string) (*core.Session, error) {
	id, err := m.tokenizer.TokenToSessionID(token)
	if err != nil {
		return nil, nil
	}
	session, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrUnknownToken) {
			return nil, nil
		}
		return nil, err
	}
	if err := m.store.Revoke(ctx, id); err != nil {
		return nil, err
	}
	return session, nil
}

// ActiveCount reports the number of live sessions.
func (m *SessionManager) ActiveCount(ctx context.Context) (int, error) {
	return m.store.ActiveCount(ctx, m.clock.Now())
}

// Sweep reclaims expired session records. Validation correctness does
// not depend on it; it only bounds memory.
func (m *SessionManager) Sweep(ctx context.Context) (int, error) {
	return m.store.DeleteExpired(ctx, m.clock.Now())
}

// Drain stops new session issuance while in-flight validation
// continues. Draining is irreversible for the manager's lifetime.
func (m *SessionManager) Drain() {
	m.draining.Store(true)
}

// Draining reports whether the manager refuses new sessions.
func (m *SessionManager) Draining() bool {
	return m.draining.Load()
}

// newSessionID returns a 192-bit random identifier.
func newSessionID() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
