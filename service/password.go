package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/aegis-id/aegis/core"
	"github.com/aegis-id/aegis/ports"
)

// Argon2Params are the tunable parameters for argon2id hashing.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultArgon2Params is the production parameter set.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		KeyLen:  32,
		SaltLen: 16,
	}
}

// VerifyStatus is the outcome of a password verification.
type VerifyStatus int

const (
	VerifyMatched VerifyStatus = iota
	VerifyMismatch
	VerifyNoSuchUser
	VerifyLocked
)

// PasswordVerifier checks plaintext passwords against stored argon2id
// digests. Every failure path pays the same hashing cost as a real
// verification so response timing does not reveal whether the user
// exists or is locked.
type PasswordVerifier struct {
	creds   ports.CredentialStore
	lockout *LockoutPolicy
	params  Argon2Params

	// fixed material for the dummy computation on the not-found
	// and locked paths
	dummySalt []byte
	dummyHash []byte
}

// NewPasswordVerifier creates a verifier bound to a credential store
// and a lockout policy.
func NewPasswordVerifier(creds ports.CredentialStore, lockout *LockoutPolicy, params Argon2Params) (*PasswordVerifier, error) {
	dummySalt := make([]byte, params.SaltLen)
	if _, err := rand.Read(dummySalt); err != nil {
		return nil, fmt.Errorf("failed to initialize dummy salt: %w", err)
	}
	dummyHash := argon2.IDKey([]byte("aegis-dummy"), dummySalt, params.Time, params.Memory, params.Threads, params.KeyLen)
	return &PasswordVerifier{
		creds:     creds,
		lockout:   lockout,
		params:    params,
		dummySalt: dummySalt,
		dummyHash: dummyHash,
	}, nil
}

// Verify checks password against the stored digest for username.
// On VerifyMatched the lockout counters are cleared; on VerifyMismatch
// a failure is recorded.
func (v *PasswordVerifier) Verify(ctx context.Context, username, password string) (VerifyStatus, error) {
	rec, err := v.creds.Get(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrUnknownUser) {
			v.dummyVerify(password)
			return VerifyNoSuchUser, nil
		}
		return VerifyMismatch, fmt.Errorf("credential lookup: %w", err)
	}

	locked, err := v.lockout.IsLocked(ctx, username)
	if err != nil {
		return VerifyMismatch, err
	}
	if locked {
		// Fast-reject without touching the real digest, but keep
		// the timing identical to a normal verification.
		v.dummyVerify(password)
		return VerifyLocked, nil
	}

	salt, err := base64.RawStdEncoding.DecodeString(rec.Salt)
	if err != nil {
		return VerifyMismatch, fmt.Errorf("corrupt salt for %q: %w", username, err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(rec.PasswordHash)
	if err != nil {
		return VerifyMismatch, fmt.Errorf("corrupt hash for %q: %w", username, err)
	}

	key := argon2.IDKey([]byte(password), salt, v.params.Time, v.params.Memory, v.params.Threads, v.params.KeyLen)
	if subtle.ConstantTimeCompare(key, expected) == 1 {
		if err := v.lockout.RecordSuccess(ctx, username); err != nil {
			return VerifyMatched, err
		}
		return VerifyMatched, nil
	}

	if err := v.lockout.RecordFailure(ctx, username); err != nil {
		return VerifyMismatch, err
	}
	return VerifyMismatch, nil
}

// dummyVerify burns the same CPU and memory as a real verification
// and compares against a digest that can never match.
func (v *PasswordVerifier) dummyVerify(password string) {
	key := argon2.IDKey([]byte(password), v.dummySalt, v.params.Time, v.params.Memory, v.params.Threads, v.params.KeyLen)
	subtle.ConstantTimeCompare(key, v.dummyHash)
}

// HashPassword produces a fresh salted argon2id digest for
// provisioning a user record.
func HashPassword(password string, params Argon2Params) (hash, salt string, err error) {
	saltBytes := make([]byte, params.SaltLen)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), saltBytes, params.Time, params.Memory, params.Threads, params.KeyLen)
	return base64.RawStdEncoding.EncodeToString(key), base64.RawStdEncoding.EncodeToString(saltBytes), nil
}
