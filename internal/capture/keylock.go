package capture

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// KeyLock serializes capture attempts per (tenant, phone) so the dedup
// lookup-then-insert sequence is not racy across instances. Best-effort: when
// Redis is unavailable the capture proceeds unserialized rather than failing.
type KeyLock interface {
	// Acquire returns a release func. acquired=false means the key is held
	// elsewhere or locking is unavailable; the caller proceeds either way.
	Acquire(ctx context.Context, key string) (release func(), acquired bool)
}

type redisKeyLock struct {
	rds *redis.Client
	ttl time.Duration
}

func NewRedisKeyLock(rds *redis.Client, ttl time.Duration) KeyLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &redisKeyLock{rds: rds, ttl: ttl}
}

const lockRetryWait = 50 * time.Millisecond

func (l *redisKeyLock) Acquire(ctx context.Context, key string) (func(), bool) {
	token := ulid.Make().String()
	deadline := time.Now().Add(l.ttl)

	for {
		ok, err := l.rds.SetNX(ctx, "lock:capture:"+key, token, l.ttl).Result()
		if err != nil {
			// redis down: degrade to unserialized capture
			return func() {}, false
		}
		if ok {
			return func() {
				// release only our own token
				const del = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) end return 0`
				_ = l.rds.Eval(context.Background(), del, []string{"lock:capture:" + key}, token).Err()
			}, true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return func() {}, false
		}
		time.Sleep(lockRetryWait)
	}
}

// NoopLock never serializes. Used in tests.
type NoopLock struct{}

func (NoopLock) Acquire(context.Context, string) (func(), bool) { return func() {}, true }
