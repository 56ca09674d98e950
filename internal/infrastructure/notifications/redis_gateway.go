package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase/interfaces"

	"github.com/redis/go-redis/v9"
)

var (
	_ interfaces.INotificationGateway = (*RedisGateway)(nil)
	_ interfaces.IEventPublisher      = (*RedisGateway)(nil)
)

const (
	defaultKeyPrefix = "marketplace:"
	inboxLimit       = 200
)

// RedisGateway publishes notifications on a per-recipient channel and keeps
// the latest ones in a capped inbox list so clients that were offline can
// catch up. Lifecycle events go to a single events channel.
type RedisGateway struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisGateway(client redis.UniversalClient) *RedisGateway {
	return &RedisGateway{client: client, prefix: defaultKeyPrefix}
}

func (g *RedisGateway) NotificationChannel(recipientID string) string {
	return g.prefix + "notifications:" + recipientID
}

func (g *RedisGateway) InboxKey(recipientID string) string {
	return g.prefix + "inbox:" + recipientID
}

func (g *RedisGateway) EventsChannel() string {
	return g.prefix + "events"
}

func (g *RedisGateway) Notify(ctx context.Context, n entities.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = g.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, g.InboxKey(n.RecipientID), body)
		p.LTrim(ctx, g.InboxKey(n.RecipientID), 0, inboxLimit-1)
		p.Publish(ctx, g.NotificationChannel(n.RecipientID), body)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis notify %s: %w", n.RecipientID, err)
	}
	return nil
}

func (g *RedisGateway) Publish(ctx context.Context, evt entities.LifecycleEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := g.client.Publish(ctx, g.EventsChannel(), body).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", evt.Name, err)
	}
	return nil
}
