package notifications

import (
	"context"
	"log"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase/interfaces"
)

var (
	_ interfaces.INotificationGateway = LogGateway{}
	_ interfaces.IEventPublisher      = LogGateway{}
)

// LogGateway writes notifications and events to the process log. Used when
// no Redis is configured.
type LogGateway struct{}

func (LogGateway) Notify(_ context.Context, n entities.Notification) error {
	log.Printf("[notify][log] recipient=%s job_id=%s event=%s payload=%v", n.RecipientID, n.JobID, n.Event, n.Payload)
	return nil
}

func (LogGateway) Publish(_ context.Context, evt entities.LifecycleEvent) error {
	log.Printf("[event][log] name=%s payload=%v", evt.Name, evt.Payload)
	return nil
}
