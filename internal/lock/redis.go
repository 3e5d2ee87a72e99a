package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-taken by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a SET NX lock with a TTL, for deployments where instances do
// not share a filesystem.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisLock returns a lock stored under key. The TTL bounds how long a
// crashed holder blocks other instances.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{client: client, key: key, ttl: ttl}
}

// Acquire takes the lock or fails with ErrLocked.
func (l *RedisLock) Acquire(ctx context.Context) (func() error, error) {
	owner := Owner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
		Token:     uuid.NewString(),
	}
	value, err := json.Marshal(owner)
	if err != nil {
		return nil, fmt.Errorf("marshal lock owner: %w", err)
	}

	ok, err := l.client.SetNX(ctx, l.key, value, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire redis lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, l.describeHolder(ctx))
	}

	return func() error {
		// The run context may already be cancelled; release regardless.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, string(value)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release redis lock %s: %w", l.key, err)
		}
		return nil
	}, nil
}

func (l *RedisLock) describeHolder(ctx context.Context) string {
	raw, err := l.client.Get(ctx, l.key).Result()
	if err != nil {
		return l.key
	}
	var owner Owner
	if err := json.Unmarshal([]byte(raw), &owner); err != nil {
		return l.key
	}
	return fmt.Sprintf("%s (pid=%d created_at=%s host=%s)", l.key, owner.PID, owner.CreatedAt, owner.Hostname)
}
