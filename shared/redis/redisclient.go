package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds all configuration for the Redis client
type Config struct {
	Addr     string
	Password string
	DB       int
	// MaxStreamLen caps the audit stream with approximate trimming; 0 disables it
	MaxStreamLen int64
}

// RedisClient wraps go-redis with the stream operations the audit trail needs
type RedisClient struct {
	client *redis.Client
	config Config
}

// NewClient creates and connects a new RedisClient
func NewClient(ctx context.Context, cfg Config) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisClient{client: rdb, config: cfg}, nil
}

// Close gracefully closes the Redis connection
func (c *RedisClient) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying go-redis client
func (c *RedisClient) GetClient() *redis.Client {
	return c.client
}

// PublishAuditEvent appends an event to the stream with XADD and an auto-generated id
func (c *RedisClient) PublishAuditEvent(ctx context.Context, streamName string, data map[string]interface{}) (string, error) {
	args := &redis.XAddArgs{
		Stream: streamName,
		Values: data,
	}
	if c.config.MaxStreamLen > 0 {
		args.MaxLen = c.config.MaxStreamLen
		args.Approx = true
	}

	msgID, err := c.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to XADD to stream %s: %w", streamName, err)
	}
	return msgID, nil
}

// GetStreamLength returns the current stream length
func (c *RedisClient) GetStreamLength(ctx context.Context, streamName string) (int64, error) {
	return c.client.XLen(ctx, streamName).Result()
}

// HealthCheck verifies Redis connectivity
func (c *RedisClient) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
