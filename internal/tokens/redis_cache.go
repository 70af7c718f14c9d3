package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-copy-trader/internal/domain"
)

const defaultRedisTTL = 24 * time.Hour

// RedisConfig holds connection parameters for the metadata cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache stores metadata as JSON strings under token:meta:{mint}.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache connects and pings Redis.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}, nil
}

func metadataKey(mint string) string { return "token:meta:" + mint }

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, mint string) (domain.TokenMetadata, error) {
	data, err := c.rdb.Get(ctx, metadataKey(mint)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.TokenMetadata{}, domain.ErrNotFound
		}
		return domain.TokenMetadata{}, fmt.Errorf("redis: get metadata %s: %w", mint, err)
	}

	var meta domain.TokenMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.TokenMetadata{}, fmt.Errorf("redis: unmarshal metadata %s: %w", mint, err)
	}
	return meta, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, meta domain.TokenMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("redis: marshal metadata %s: %w", meta.Mint, err)
	}
	if err := c.rdb.Set(ctx, metadataKey(meta.Mint), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set metadata %s: %w", meta.Mint, err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
