package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/aegis-id/aegis/core"
	"github.com/aegis-id/aegis/ports"
)

// DefaultChallengeTTL is the lifetime of an issued challenge.
const DefaultChallengeTTL = 2 * time.Minute

const challengeKeyInfo = "aegis/challenge/v1"

// ChallengeRegistry issues and consumes one-time challenge nonces.
// The expected response is an HMAC-SHA256 proof over the nonce, keyed
// with material derived from the server secret and the user's
// credential state, so it cannot be forged without both.
type ChallengeRegistry struct {
	store  ports.ChallengeStore
	creds  ports.CredentialStore
	clock  ports.Clock
	secret []byte
	ttl    time.Duration
}

// NewChallengeRegistry creates a registry keyed by secret.
func NewChallengeRegistry(store ports.ChallengeStore, creds ports.CredentialStore, clock ports.Clock, secret []byte, ttl time.Duration) *ChallengeRegistry {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeRegistry{
		store:  store,
		creds:  creds,
		clock:  clock,
		secret: secret,
		ttl:    ttl,
	}
}

// Issue creates a fresh challenge for username, overwriting any prior
// unconsumed challenge. At most one challenge is live per user.
func (r *ChallengeRegistry) Issue(ctx context.Context, username string) (string, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := base64.RawURLEncoding.EncodeToString(nonceBytes)

	now := r.clock.Now()
	challenge := &core.Challenge{
		Username:  username,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(r.ttl),
	}
	if err := r.store.Put(ctx, challenge); err != nil {
		return "", fmt.Errorf("failed to store challenge: %w", err)
	}
	return nonce, nil
}

// Validate checks nonce and response against the user's live
// challenge. On success the challenge is consumed immediately and can
// never be accepted again. On any failure the challenge is left as-is
// and is not rotated.
func (r *ChallengeRegistry) Validate(ctx context.Context, username, nonce, response string) error {
	passwordHash := ""
	if rec, err := r.creds.Get(ctx, username); err == nil {
		passwordHash = rec.PasswordHash
	}

	return r.store.Update(ctx, username, func(c *core.Challenge) error {
		if c.Consumed {
			return core.ErrChallengeConsumed
		}
		if r.clock.Now().After(c.ExpiresAt) {
			return core.ErrChallengeExpired
		}
		if !hmac.Equal([]byte(c.Nonce), []byte(nonce)) {
			return core.ErrChallengeMismatch
		}

		expected := ChallengeProof(r.secret, username, passwordHash, c.Nonce)
		got, err := base64.RawURLEncoding.DecodeString(response)
		if err != nil {
			return core.ErrChallengeMismatch
		}
		want, err := base64.RawURLEncoding.DecodeString(expected)
		if err != nil {
			return core.ErrChallengeMismatch
		}
		if !hmac.Equal(got, want) {
			return core.ErrChallengeMismatch
		}

		c.Consumed = true
		return nil
	})
}

// ChallengeProof computes the response expected for a nonce. The key
// is derived per user via HKDF over the server secret, salted by the
// username and bound to the current password hash, so a credential
// change invalidates outstanding proofs.
func ChallengeProof(secret []byte, username, passwordHash, nonce string) string {
	kdf := hkdf.New(sha256.New, secret, []byte(username), []byte(challengeKeyInfo+":"+passwordHash))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		// HKDF over SHA-256 cannot fail for a 32-byte read.
		panic(err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// errChallengeTerminal reports whether err is one of the recoverable
// challenge outcomes rather than a store failure.
func errChallengeTerminal(err error) bool {
	return errors.Is(err, core.ErrChallengeNotFound) ||
		errors.Is(err, core.ErrChallengeExpired) ||
		errors.Is(err, core.ErrChallengeConsumed) ||
		errors.Is(err, core.ErrChallengeMismatch)
}
