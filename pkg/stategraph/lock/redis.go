package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// unlockScript deletes the key only if it still holds our token.
var unlockScript = backend.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// refreshScript extends the key's expiry only if it still holds our token.
var refreshScript = backend.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Redis is a Locker shared by every process using the same Redis server.
type Redis struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithLockTTL bounds how long a lock survives a crashed holder. A live
// holder renews the lock every third of the TTL until it unlocks.
// Default: 10 minutes.
func WithLockTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// WithLockPrefix sets the key prefix. Default: "stategraph:lock:".
func WithLockPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis creates a Redis-backed locker.
func NewRedis(client *backend.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: "stategraph:lock:",
		ttl:    10 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TryLock implements Locker using SET NX PX.
func (r *Redis) TryLock(ctx context.Context, key string) (UnlockFunc, error) {
	lockKey := r.prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error acquiring lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	refreshCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.refresh(refreshCtx, lockKey, token)
	}()

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			stop()
			<-done
		})
		return unlockScript.Run(ctx, r.client, []string{lockKey}, token).Err()
	}, nil
}

// refresh renews the lock until ctx is cancelled, the lock has passed to
// another holder, or the client is closed.
func (r *Redis) refresh(ctx context.Context, lockKey, token string) {
	ticker := time.NewTicker(max(r.ttl/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := refreshScript.Run(ctx, r.client, []string{lockKey}, token, r.ttl.Milliseconds()).Int()
		switch {
		case errors.Is(err, backend.ErrClosed):
			return
		case err != nil:
			// Retry on the next tick; the TTL covers a few missed renewals.
			continue
		case n == 0:
			return
		}
	}
}
