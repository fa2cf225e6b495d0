package store

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/aegis-id/aegis/core"
	"github.com/aegis-id/aegis/ports"
)

const shardCount = 32

// shardIndex maps a key to its shard so unrelated records never
// contend on the same lock.
func shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}

// MemoryCredentialStore is a sharded in-memory CredentialStore.
// Mutation of a single record is serialized by its shard lock while
// records in other shards proceed concurrently.
type MemoryCredentialStore struct {
	shards [shardCount]struct {
		mu    sync.RWMutex
		users map[string]*core.UserRecord
	}
}

// NewMemoryCredentialStore creates an empty credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	s := &MemoryCredentialStore{}
	for i := range s.shards {
		s.shards[i].users = make(map[string]*core.UserRecord)
	}
	return s
}

func (s *MemoryCredentialStore) Get(ctx context.Context, username string) (*core.UserRecord, error) {
	sh := &s.shards[shardIndex(username)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.users[username]
	if !ok {
		return nil, core.ErrUnknownUser
	}
	return copyUser(rec), nil
}

func (s *MemoryCredentialStore) Put(ctx context.Context, user *core.UserRecord) error {
	sh := &s.shards[shardIndex(user.Username)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.users[user.Username] = copyUser(user)
	return nil
}

func (s *MemoryCredentialStore) Update(ctx context.Context, username string, fn func(*core.UserRecord) error) error {
	sh := &s.shards[shardIndex(username)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.users[username]
	if !ok {
		return core.ErrUnknownUser
	}
	working := copyUser(rec)
	if err := fn(working); err != nil {
		return err
	}
	sh.users[username] = working
	return nil
}

func (s *MemoryCredentialStore) LockedCount(ctx context.Context, now time.Time) (int, error) {
	count := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for _, rec := range sh.users {
			if rec.LockedUntil != nil && now.Before(*rec.LockedUntil) {
				count++
			}
		}
		sh.mu.RUnlock()
	}
	return count, nil
}

// copyUser returns a deep copy so callers never hold a pointer into
// the store's own record.
func copyUser(u *core.UserRecord) *core.UserRecord {
	cp := *u
	if u.LockedUntil != nil {
		until := *u.LockedUntil
		cp.LockedUntil = &until
	}
	return &cp
}

// MemorySessionStore is a sharded in-memory SessionStore.
type MemorySessionStore struct {
	shards [shardCount]struct {
		mu       sync.RWMutex
		sessions map[string]*core.Session
	}
}

// NewMemorySessionStore creates an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	s := &MemorySessionStore{}
	for i := range s.shards {
		s.shards[i].sessions = make(map[string]*core.Session)
	}
	return s
}

func (s *MemorySessionStore) Put(ctx context.Context, session *core.Session) error {
	sh := &s.shards[shardIndex(session.ID)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cp := *session
	sh.sessions[session.ID] = &cp
	return nil
}

func (s *MemorySessionStore) Get(ctx context.Context, id string) (*core.Session, error) {
	sh := &s.shards[shardIndex(id)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	session, ok := sh.sessions[id]
	if !ok {
		return nil, core.ErrUnknownToken
	}
	cp := *session
	return &cp, nil
}

func (s *MemorySessionStore) Revoke(ctx context.Context, id string) error {
	sh := &s.shards[shardIndex(id)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if session, ok := sh.sessions[id]; ok {
		session.Revoked = true
	}
	return nil
}

func (s *MemorySessionStore) ActiveCount(ctx context.Context, now time.Time) (int, error) {
	count := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for _, session := range sh.sessions {
			if !session.Revoked && now.Before(session.ExpiresAt) {
				count++
			}
		}
		sh.mu.RUnlock()
	}
	return count, nil
}

func (s *MemorySessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, session := range sh.sessions {
			if !now.Before(session.ExpiresAt) {
				delete(sh.sessions, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

// MemoryChallengeStore is a sharded in-memory ChallengeStore keyed by
// username, holding at most one challenge per user.
type MemoryChallengeStore struct {
	shards [shardCount]struct {
		mu         sync.Mutex
		challenges map[string]*core.Challenge
	}
}

// NewMemoryChallengeStore creates an empty challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	s := &MemoryChallengeStore{}
	for i := range s.shards {
		s.shards[i].challenges = make(map[string]*core.Challenge)
	}
	return s
}

func (s *MemoryChallengeStore) Put(ctx context.Context, challenge *core.Challenge) error {
	sh := &s.shards[shardIndex(challenge.Username)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cp := *challenge
	sh.challenges[challenge.Username] = &cp
	return nil
}

func (s *MemoryChallengeStore) Update(ctx context.Context, username string, fn func(*core.Challenge) error) error {
	sh := &s.shards[shardIndex(username)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	challenge, ok := sh.challenges[username]
	if !ok {
		return core.ErrChallengeNotFound
	}
	working := *challenge
	if err := fn(&working); err != nil {
		return err
	}
	sh.challenges[username] = &working
	return nil
}

func (s *MemoryChallengeStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for username, challenge := range sh.challenges {
			if !now.Before(challenge.ExpiresAt) {
				delete(sh.challenges, username)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

var (
	_ ports.CredentialStore = (*MemoryCredentialStore)(nil)
	_ ports.SessionStore    = (*MemorySessionStore)(nil)
	_ ports.ChallengeStore  = (*MemoryChallengeStore)(nil)
)
