package core

import "errors"

var (
	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned while a lockout window is active.
	ErrAccountLocked = errors.New("account is locked")

	// ErrUnknownUser is returned when no record exists for a username.
	// Callers facing the outside world must fold this into
	// ErrInvalidCredentials to avoid a user-enumeration oracle.
	ErrUnknownUser = errors.New("unknown user")

	// ErrUnknownToken is returned when a token has no session record.
	ErrUnknownToken = errors.New("unknown token")

	// ErrTokenExpired is returned when a session is past its expiry.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenRevoked is returned when a session has been logged out.
	ErrTokenRevoked = errors.New("token has been revoked")

	// ErrInvalidToken is returned when a token fails structural checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrChallengeNotFound is returned when no live challenge exists.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeExpired is returned when a challenge is past its expiry.
	ErrChallengeExpired = errors.New("challenge has expired")

	// ErrChallengeConsumed is returned on replay of a used challenge.
	ErrChallengeConsumed = errors.New("challenge already consumed")

	// ErrChallengeMismatch is returned when the nonce or proof is wrong.
	ErrChallengeMismatch = errors.New("challenge response mismatch")

	// ErrUnauthenticated is returned by the encryption gate when the
	// caller presents no valid session of sufficient level.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrCryptoFailure is the generic decryption failure. It is
	// deliberately unspecific so tampering cannot be distinguished
	// from a wrong key or malformed input.
	ErrCryptoFailure = errors.New("crypto failure")

	// ErrDraining is returned when new session issuance is refused
	// during shutdown.
	ErrDraining = errors.New("engine is draining")

	// ErrStoreFailure wraps backend store errors.
	ErrStoreFailure = errors.New("store operation failed")
)
