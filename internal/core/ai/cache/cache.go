package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/infrastructure/config"
)

// Cache AI 補全快取
// 鍵為 (model, prompt)，未命中回傳 (nil, false, nil)
type Cache interface {
	Get(ctx context.Context, model, prompt string) (*provider.Completion, bool, error)
	Set(ctx context.Context, model, prompt string, completion *provider.Completion) error
	Close() error
}

// New 依設定建立快取後端，停用時回傳 nil
func New(cfg *config.Config) (Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "redis":
		return NewRedisCache(cfg)
	default:
		return NewManager(cfg), nil
	}
}

// cacheKey 生成快取鍵（prompt 雜湊避免把長文當鍵用）
func cacheKey(model, prompt string) string {
	hash := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("ai:completion:%s:%s", model, hex.EncodeToString(hash[:]))
}
