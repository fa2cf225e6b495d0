package core

import "time"

// AuthLevel is the ordered trust tier bound to a session.
type AuthLevel int

const (
	LevelNone AuthLevel = iota
	LevelBasic
	LevelElevated
)

func (l AuthLevel) String() string {
	switch l {
	case LevelBasic:
		return "basic"
	case LevelElevated:
		return "elevated"
	default:
		return "none"
	}
}

// ParseAuthLevel converts a level name back to an AuthLevel.
// Unknown names map to LevelNone.
func ParseAuthLevel(s string) AuthLevel {
	switch s {
	case "basic":
		return LevelBasic
	case "elevated":
		return LevelElevated
	default:
		return LevelNone
	}
}

// UserRecord holds the credential state for a single user.
type UserRecord struct {
	Username       string     // unique key
	PasswordHash   string     // base64 argon2id digest
	Salt           string     // base64 salt used for PasswordHash
	FailedAttempts int        // consecutive failed logins since last success
	LockStage      int        // completed lock cycles, drives backoff
	LockedUntil    *time.Time // nil when not locked
}

// Session represents an authenticated user session.
type Session struct {
	ID        string    // unguessable token identifier
	Username  string    // owner of the session
	Level     AuthLevel // trust tier granted at issuance
	IssuedAt  time.Time // when the session was created
	ExpiresAt time.Time // hard expiry, never extended implicitly
	Revoked   bool      // set once by logout, never cleared
}

// Challenge is a one-time nonce issued for trust escalation.
type Challenge struct {
	Username  string
	Nonce     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Consumed  bool
}

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	Success bool
	Token   string
	Level   AuthLevel
	Elapsed time.Duration
}

// StatsSnapshot is a point-in-time view of engine activity.
// Counters are monotonic; ActiveSessions and LockedUsers are read
// from the authoritative stores at snapshot time.
type StatsSnapshot struct {
	TotalRequests         uint64
	SuccessfulRequests    uint64
	FailedRequests        uint64
	AverageProcessingTime time.Duration
	ActiveSessions        int
	LockedUsers           int
}
