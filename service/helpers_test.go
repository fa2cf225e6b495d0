package service_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegis-id/aegis/adapters/store"
	"github.com/aegis-id/aegis/adapters/tokenizer"
	"github.com/aegis-id/aegis/core"
	"github.com/aegis-id/aegis/service"
)

// fastArgon2 keeps hashing cheap in tests while staying valid.
var fastArgon2 = service.Argon2Params{
	Time:    1,
	Memory:  64,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	clock      *fakeClock
	creds      *store.MemoryCredentialStore
	lockout    *service.LockoutPolicy
	verifier   *service.PasswordVerifier
	challenges *service.ChallengeRegistry
	sessions   *service.SessionManager
	gate       *service.EncryptionGate
	stats      *service.StatsCollector
	engine     *service.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := newFakeClock()
	creds := store.NewMemoryCredentialStore()
	sessionStore := store.NewMemorySessionStore()
	challengeStore := store.NewMemoryChallengeStore()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	lockout := service.NewLockoutPolicy(creds, clock, nil, nil,
		service.DefaultLockoutThreshold, service.DefaultLockoutDuration, service.DefaultLockoutMax)

	verifier, err := service.NewPasswordVerifier(creds, lockout, fastArgon2)
	require.NoError(t, err)

	challenges := service.NewChallengeRegistry(challengeStore, creds, clock, testSecret, service.DefaultChallengeTTL)

	sessions := service.NewSessionManager(sessionStore, tokenizer.NewJWTTokenizer(signKey), clock,
		service.DefaultBasicTTL, service.DefaultElevatedTTL)

	gate, err := service.NewEncryptionGate(sessions, testSecret)
	require.NoError(t, err)

	stats := service.NewStatsCollector()

	engine := service.NewAuthService(service.Deps{
		Credentials: creds,
		Verifier:    verifier,
		Lockout:     lockout,
		Challenges:  challenges,
		Sessions:    sessions,
		Gate:        gate,
		Stats:       stats,
		Clock:       clock,
	})

	return &fixture{
		clock:      clock,
		creds:      creds,
		lockout:    lockout,
		verifier:   verifier,
		challenges: challenges,
		sessions:   sessions,
		gate:       gate,
		stats:      stats,
		engine:     engine,
	}
}

func (f *fixture) addUser(t *testing.T, username, password string) {
	t.Helper()
	hash, salt, err := service.HashPassword(password, fastArgon2)
	require.NoError(t, err)
	require.NoError(t, f.creds.Put(context.Background(), &core.UserRecord{
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
	}))
}

// proofFor computes the valid challenge response for a user.
func (f *fixture) proofFor(t *testing.T, username, nonce string) string {
	t.Helper()
	rec, err := f.creds.Get(context.Background(), username)
	require.NoError(t, err)
	return service.ChallengeProof(testSecret, username, rec.PasswordHash, nonce)
}
