package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only if it still carries our token, so an
// expired-and-retaken lock is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLocker coordinates several service instances through Redis
// (SET NX PX + token-checked release).
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// MaxHold is how long a holder may keep a lock after acquiring it. The
// Redis key is never renewed, so work under the lock must finish within
// its TTL; a batch running longer can overlap with the next holder.
const MaxHold = time.Minute

// LeaseFor returns the Redis TTL for callers that wait up to wait for a
// lock: the wait itself plus MaxHold.
func LeaseFor(wait time.Duration) time.Duration {
	if wait < 0 {
		wait = 0
	}
	return wait + MaxHold
}

// NewRedisLocker builds a locker. ttl bounds how long a crashed holder can
// block others.
func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = MaxHold
	}
	return &RedisLocker{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		retry:  50 * time.Millisecond,
	}
}

// NewRedisClient builds a go-redis client from plain settings.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *RedisLocker) key(name string) string {
	return fmt.Sprintf("%s:lock:%s", r.prefix, name)
}

// Lock polls SET NX until it wins or ctx is done.
func (r *RedisLocker) Lock(ctx context.Context, name string) (func(), error) {
	key := r.key(name)
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return func() {
				// the caller's ctx may already be cancelled; release regardless
				relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(relCtx, r.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrTimeout
		case <-ticker.C:
		}
	}
}
