// Package service holds the business rules behind each API operation.
package service

import (
	"context"

	"bucketlist/internal/middleware"
	"bucketlist/internal/models"
	"bucketlist/internal/notifications"
)

// EventPublisher is satisfied by *notifications.Notifier.
type EventPublisher interface {
	PublishUser(ctx context.Context, userID uint, ev notifications.Event) error
	PublishBroadcast(ctx context.Context, ev notifications.Event) error
}

// publish sends ev to the broadcast channel and, when recipient is set and
// is not the actor, to the recipient's channel. Failures are logged only.
func publish(ctx context.Context, p EventPublisher, recipient uint, ev notifications.Event) {
	if p == nil {
		return
	}
	if err := p.PublishBroadcast(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "event publish failed", "type", ev.Type, "error", err)
	}
	if recipient == 0 || recipient == ev.ActorID {
		return
	}
	if err := p.PublishUser(ctx, recipient, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "event publish failed", "type", ev.Type, "recipient", recipient, "error", err)
	}
}

func fieldError(field, msg string) error {
	return models.NewFieldValidationError(map[string][]string{field: {msg}})
}
