package interfaces

import (
	"context"

	"mecanica_marketplace/internal/domain/entities"
)

// INotificationGateway delivers a notification to one participant.
//
// Delivery is best-effort: callers log a returned error and carry on, a failed
// notification never fails the lifecycle operation that produced it.
type INotificationGateway interface {
	Notify(ctx context.Context, n entities.Notification) error
}

// IEventPublisher broadcasts UI-facing lifecycle events.
type IEventPublisher interface {
	Publish(ctx context.Context, evt entities.LifecycleEvent) error
}

// IConversationService makes sure a chat channel exists between a customer and
// a mechanic for a job. Calls must be idempotent.
type IConversationService interface {
	EnsureConversation(ctx context.Context, jobID, customerID, mechanicID string) error
}
