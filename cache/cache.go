package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ojamarket/realtime-api/config"
)

// Service is the cache contract consumed by the chat, auth and location
// components. Implementations are shared, best-effort and explicitly allowed
// to be stale or lost; each caller documents its own fail-open/fail-closed
// policy.
type Service interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channel string) (<-chan string, func() error)
}

// IsMiss reports whether err means the key simply does not exist
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Redis is the redis-backed cache service
type Redis struct {
	Client *redis.Client
}

// NewRedis connects a redis client from the project config and verifies the
// connection with a ping
func NewRedis(conf *config.Config) (*Redis, error) {
	var opts *redis.Options
	if strings.HasPrefix(conf.RedisURI, "redis://") || strings.HasPrefix(conf.RedisURI, "rediss://") {
		parsed, err := redis.ParseURL(conf.RedisURI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis uri: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:         conf.RedisURI,
			Password:     conf.RedisPassword,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis connection test failed: %w", err)
	}

	return &Redis{Client: client}, nil
}

// Close closes the underlying redis connection pool
func (r *Redis) Close() error {
	return r.Client.Close()
}

// Get returns the string value at key; IsMiss(err) is true for absent keys
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	return r.Client.Get(ctx, key).Result()
}

// Set writes value at key with the given TTL; a zero ttl means no expiry
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

// Del removes the key
func (r *Redis) Del(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}

// Exists reports whether the key is present
func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetNX writes the key only if absent; used for cross-instance job locks
func (r *Redis) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, key, value, ttl).Result()
}

// Publish sends message on the named channel
func (r *Redis) Publish(ctx context.Context, channel, message string) error {
	return r.Client.Publish(ctx, channel, message).Err()
}

// Subscribe returns a channel of payloads published on the named channel and a
// closer. The channel is closed when the subscription ends.
func (r *Redis) Subscribe(ctx context.Context, channel string) (<-chan string, func() error) {
	ps := r.Client.Subscribe(ctx, channel)
	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, ps.Close
}
