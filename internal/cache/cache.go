// Package cache provides the Redis-backed context cache and the small
// operational state the gateway keeps between requests.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Well-known cache keys. Per-user context lives under ContextKey(userID).
const (
	KeyLastCommand = "cache:mcp:lastCommand"
	KeyMCPConfig   = "cache:mcp:config"
)

// ContextKey returns the cache key holding userID's conversational context.
func ContextKey(userID string) string {
	return "cache:context:" + userID
}

// Store is the key/value contract the gateway needs from its cache. The
// Redis implementation is the real one; Memory backs tests.
type Store interface {
	// Get returns the value at key, with ok=false when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value at key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Redis is the production Store backed by a single shared go-redis client.
type Redis struct {
	client *redis.Client
}

// Dial parses a redis:// URL and connects, verifying with a ping.
func Dial(ctx context.Context, url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: ping: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
