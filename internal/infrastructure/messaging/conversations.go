// Package messaging keeps track of the chat channel between the two parties
// of a job. Message transport itself lives elsewhere.
package messaging

import (
	"context"
	"fmt"
	"log"

	"mecanica_marketplace/internal/usecase/interfaces"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	_ interfaces.IConversationService = (*RedisConversations)(nil)
	_ interfaces.IConversationService = NoopConversations{}
)

// RedisConversations registers one conversation per (job, customer, mechanic)
// in a Redis hash keyed by job. HSETNX makes repeated calls idempotent.
type RedisConversations struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisConversations(client redis.UniversalClient) *RedisConversations {
	return &RedisConversations{client: client, prefix: "marketplace:conversations:"}
}

func (c *RedisConversations) key(jobID string) string {
	return c.prefix + jobID
}

func participantsField(customerID, mechanicID string) string {
	return customerID + "|" + mechanicID
}

func (c *RedisConversations) EnsureConversation(ctx context.Context, jobID, customerID, mechanicID string) error {
	created, err := c.client.HSetNX(ctx, c.key(jobID), participantsField(customerID, mechanicID), "conv_"+uuid.NewString()).Result()
	if err != nil {
		return fmt.Errorf("ensure conversation job_id=%s: %w", jobID, err)
	}
	if created {
		log.Printf("[messaging][redis] conversation created job_id=%s customer_id=%s mechanic_id=%s", jobID, customerID, mechanicID)
	}
	return nil
}

// ConversationID returns the registered conversation id, or "" when none exists.
func (c *RedisConversations) ConversationID(ctx context.Context, jobID, customerID, mechanicID string) (string, error) {
	id, err := c.client.HGet(ctx, c.key(jobID), participantsField(customerID, mechanicID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get conversation job_id=%s: %w", jobID, err)
	}
	return id, nil
}

// NoopConversations is used when no Redis is configured.
type NoopConversations struct{}

func (NoopConversations) EnsureConversation(_ context.Context, jobID, _, mechanicID string) error {
	log.Printf("[messaging][noop] ensure conversation job_id=%s mechanic_id=%s", jobID, mechanicID)
	return nil
}
