package locking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Requires a running Redis on localhost:6379; skipped otherwise.
func TestRedisLocker_Integration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}
	defer client.Close()

	prefix := "marketplace:test:lock:" + time.Now().Format("150405.000000") + ":"
	l := NewRedisLocker(client, WithLockKeyPrefix(prefix), WithLockMaxWait(100*time.Millisecond))

	unlock, err := l.Lock(ctx, "job_1")
	if err != nil {
		t.Fatalf("expected lock, got %v", err)
	}

	_, err = l.Lock(ctx, "job_1")
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout while held, got %v", err)
	}

	unlock()
	unlock2, err := l.Lock(ctx, "job_1")
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	unlock2()
}
