package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aegis-id/aegis/core"
	"github.com/aegis-id/aegis/ports"
)

// RedisSessionStore is a Redis implementation of the SessionStore.
// Records expire via Redis TTLs, so DeleteExpired is a no-op; expired
// lookups surface as core.ErrUnknownToken.
type RedisSessionStore struct {
	client *redis.Client
	clock  ports.Clock
	prefix string
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, clock ports.Clock) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		clock:  clock,
		prefix: "aegis:session:",
	}
}

type redisSession struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Level     string    `json:"level"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

func (s *RedisSessionStore) Put(ctx context.Context, session *core.Session) error {
	ttl := session.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(redisSession{
		ID:        session.ID,
		Username:  session.Username,
		Level:     session.Level.String(),
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
		Revoked:   session.Revoked,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+session.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreFailure, err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*core.Session, error) {
	payload, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, core.ErrUnknownToken
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStoreFailure, err)
	}
	var rs redisSession
	if err := json.Unmarshal(payload, &rs); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	return &core.Session{
		ID:        rs.ID,
		Username:  rs.Username,
		Level:     core.ParseAuthLevel(rs.Level),
		IssuedAt:  rs.IssuedAt,
		ExpiresAt: rs.ExpiresAt,
		Revoked:   rs.Revoked,
	}, nil
}

func (s *RedisSessionStore) Revoke(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		if err == core.ErrUnknownToken {
			return nil
		}
		return err
	}
	session.Revoked = true
	return s.Put(ctx, session)
}

func (s *RedisSessionStore) ActiveCount(ctx context.Context, now time.Time) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		session, err := s.Get(ctx, iter.Val()[len(s.prefix):])
		if err != nil {
			continue
		}
		if !session.Revoked && now.Before(session.ExpiresAt) {
			count++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrStoreFailure, err)
	}
	return count, nil
}

func (s *RedisSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	// Redis evicts via key TTLs.
	return 0, nil
}

var _ ports.SessionStore = (*RedisSessionStore)(nil)
