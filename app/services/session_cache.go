package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionCache keeps short-lived dispatch state in redis
type SessionCache interface {
	SaveLatestSession(ctx context.Context, ownerID uint, channel string, summary any) error
	// LoadLatestSession decodes the cached summary into out. It reports false on a cache miss.
	LoadLatestSession(ctx context.Context, ownerID uint, channel string, out any) (bool, error)
	// AcquireLock takes a named lock. The returned release func is a no-op when ok is false.
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

type redisSessionCache struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionCache namespaces every key with prefix
func NewRedisSessionCache(rc *redis.Client, prefix string, ttl time.Duration) SessionCache {
	return &redisSessionCache{rc: rc, prefix: prefix, ttl: ttl}
}

func (c *redisSessionCache) key(parts string) string {
	return c.prefix + parts
}

func latestSessionKey(ownerID uint, channel string) string {
	return fmt.Sprintf("dispatch:last_session:%d:%s", ownerID, channel)
}

func (c *redisSessionCache) SaveLatestSession(ctx context.Context, ownerID uint, channel string, summary any) error {
	bs, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode session summary: %w", err)
	}
	return c.rc.Set(ctx, c.key(latestSessionKey(ownerID, channel)), bs, c.ttl).Err()
}

func (c *redisSessionCache) LoadLatestSession(ctx context.Context, ownerID uint, channel string, out any) (bool, error) {
	bs, err := c.rc.Get(ctx, c.key(latestSessionKey(ownerID, channel))).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(bs, out); err != nil {
		return false, fmt.Errorf("failed to decode cached session summary: %w", err)
	}
	return true, nil
}

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (c *redisSessionCache) AcquireLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := c.key("lock:" + name)
	token := uuid.NewString()

	ok, err := c.rc.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return func() {}, false, err
	}
	if !ok {
		return func() {}, false, nil
	}

	release := func() {
		// The caller's context may already be done
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, c.rc, []string{key}, token).Err()
	}
	return release, true, nil
}
