package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisCache Redis 補全快取，供多實例部署共用
type RedisCache struct {
	client *redis.Client
	config *config.CacheConfig
}

// NewRedisCache 創建 Redis 快取
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis 快取已初始化",
		zap.String("addr", cfg.Cache.RedisAddr),
		zap.Duration("ttl", cfg.Cache.TTL),
	)

	return &RedisCache{
		client: client,
		config: &cfg.Cache,
	}, nil
}

// Get 獲取快取的補全
func (c *RedisCache) Get(ctx context.Context, model, prompt string) (*provider.Completion, bool, error) {
	key := cacheKey(model, prompt)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			common.LogCacheMiss("completion", key)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cache: %w", err)
	}

	var completion provider.Completion
	if err := json.Unmarshal(data, &completion); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cache: %w", err)
	}

	common.LogCacheHit("completion", key)
	return &completion, true, nil
}

// Set 寫入補全快取
func (c *RedisCache) Set(ctx context.Context, model, prompt string, completion *provider.Completion) error {
	data, err := json.Marshal(completion)
	if err != nil {
		return fmt.Errorf("failed to marshal completion: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(model, prompt), data, c.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Close 關閉 Redis 連接
func (c *RedisCache) Close() error {
	return c.client.Close()
}
