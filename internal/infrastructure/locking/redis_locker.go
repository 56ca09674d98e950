package locking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mecanica_marketplace/internal/usecase/interfaces"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ interfaces.IJobLocker = (*RedisLocker)(nil)

var ErrLockTimeout = errors.New("lock wait timed out")

// releaseScript deletes the key only when it still holds our token, so a lock
// that expired and was taken by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a per-job lock shared by every API and sweeper process
// connected to the same Redis.
type RedisLocker struct {
	client    redis.UniversalClient
	prefix    string
	ttl       time.Duration
	retry     time.Duration
	maxWait   time.Duration
	newToken  func() string
	sleepFunc func(context.Context, time.Duration)
}

type RedisLockerOption func(*RedisLocker)

// WithLockTTL bounds how long a crashed holder keeps the lock. The lease is
// not renewed; work done under the lock, provider calls included, must finish
// within it.
func WithLockTTL(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) { l.ttl = d }
}

func WithLockMaxWait(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) { l.maxWait = d }
}

func WithLockKeyPrefix(p string) RedisLockerOption {
	return func(l *RedisLocker) { l.prefix = p }
}

func NewRedisLocker(client redis.UniversalClient, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:    client,
		prefix:    "marketplace:lock:job:",
		ttl:       30 * time.Second,
		retry:     25 * time.Millisecond,
		maxWait:   10 * time.Second,
		newToken:  func() string { return uuid.NewString() },
		sleepFunc: sleepCtx,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, jobID string) (func(), error) {
	key := l.prefix + jobID
	token := l.newToken()
	deadline := time.Now().Add(l.maxWait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		l.sleepFunc(ctx, l.retry)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	unlocked := false
	return func() {
		if unlocked {
			return
		}
		unlocked = true
		// The holder's context may already be cancelled; release regardless.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil {
			log.Printf("[lock][redis] release failed key=%s err=%v", key, err)
		}
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
