package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/aegis-id/aegis/ports"
)

const (
	// LogoutTopic carries session revocation events.
	LogoutTopic = "auth.logout"

	// LockoutTopic carries account lockout events.
	LockoutTopic = "auth.lockout"
)

// LogoutEvent is published when a session is revoked.
type LogoutEvent struct {
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
}

// LockoutEvent is published when an account enters a lock window.
type LockoutEvent struct {
	Username string    `json:"username"`
	Until    time.Time `json:"until"`
}

// WatermillPublisher implements the EventPublisher interface using
// Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher wraps a Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, username string, sessionID string) error {
	return p.publish(LogoutTopic, LogoutEvent{
		Username:  username,
		SessionID: sessionID,
	})
}

// PublishLockout publishes a lockout event.
func (p *WatermillPublisher) PublishLockout(ctx context.Context, username string, until time.Time) error {
	return p.publish(LockoutTopic, LockoutEvent{
		Username: username,
		Until:    until,
	})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
