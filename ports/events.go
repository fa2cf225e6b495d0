package ports

import (
	"context"
	"time"
)

// EventPublisher publishes domain events to notify other instances.
// Publishing is best-effort: callers log failures and move on.
type EventPublisher interface {
	PublishLogout(ctx context.Context, username string, sessionID string) error
	PublishLockout(ctx context.Context, username string, until time.Time) error
}
