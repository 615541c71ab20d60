package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-extractor/internal/core/ai/cache"
	"recipe-extractor/internal/core/ai/gemini"
	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/core/ai/queue"
	"recipe-extractor/internal/pkg/common"

	"go.uber.org/zap"
)

// UsageMeta 單次 AI 呼叫的歸屬資訊，記入用量帳
type UsageMeta struct {
	Platform      common.Platform
	UniqueVideoID string
	Purpose       string
}

// UsageRecorder 寫入用量紀錄的最小介面
type UsageRecorder interface {
	InsertUsageLog(ctx context.Context, log *common.AIUsageLog) error
}

// Service 文字補全服務
// 依備援鏈順序嘗試各模型：速率限制或錯誤時前進到下一棒，
// 全數失敗時回傳 common.ErrChainExhausted
type Service struct {
	chain   []provider.ChainEntry
	vision  *gemini.Client
	cache   cache.Cache
	limiter *queue.Limiter
	usage   UsageRecorder
}

// NewService 創建 AI 服務
// vision 可為 nil（未設定 Gemini 金鑰時影片解析不可用）
func NewService(chain []provider.ChainEntry, vision *gemini.Client, c cache.Cache, limiter *queue.Limiter, usage UsageRecorder) (*Service, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("ai service requires at least one chain entry")
	}
	return &Service{
		chain:   chain,
		vision:  vision,
		cache:   c,
		limiter: limiter,
		usage:   usage,
	}, nil
}

// Complete 沿備援鏈生成補全
// maxTokens 為輸出上限（0 表示供應者預設），回傳的 TokensUsed 只反映實際成功的那一棒
func (s *Service) Complete(ctx context.Context, prompt string, maxTokens int, meta UsageMeta) (*provider.Completion, error) {
	var lastErr error

	for _, entry := range s.chain {
		if s.cache != nil {
			if cached, hit, err := s.cache.Get(ctx, entry.Model, prompt); err == nil && hit {
				return cached, nil
			}
		}

		completion, err := s.complete(ctx, entry, prompt, maxTokens, meta)
		if err != nil {
			if errors.Is(err, common.ErrRateLimited) {
				common.LogWarn("模型速率限制，換下一棒",
					zap.String("provider", entry.Provider.Name()),
					zap.String("model", entry.Model),
				)
			} else {
				common.LogWarn("模型呼叫失敗，換下一棒",
					zap.Error(err),
					zap.String("provider", entry.Provider.Name()),
					zap.String("model", entry.Model),
				)
			}
			lastErr = err
			continue
		}

		if s.cache != nil {
			_ = s.cache.Set(ctx, entry.Model, prompt, completion)
		}
		return completion, nil
	}

	return nil, fmt.Errorf("%w: %v", common.ErrChainExhausted, lastErr)
}

func (s *Service) complete(ctx context.Context, entry provider.ChainEntry, prompt string, maxTokens int, meta UsageMeta) (*provider.Completion, error) {
	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	completion, err := entry.Provider.Complete(ctx, entry.Model, prompt, maxTokens)
	common.LogAICall(entry.Model, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.recordUsage(ctx, meta, completion, time.Since(start))
	return completion, nil
}

// AnalyzeVideo 以視覺模型直接解析影片媒體
func (s *Service) AnalyzeVideo(ctx context.Context, mediaURL, mimeType, prompt string, meta UsageMeta) (*provider.Completion, error) {
	if s.vision == nil {
		return nil, fmt.Errorf("video analysis is not configured")
	}

	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	completion, err := s.vision.AnalyzeVideo(ctx, mediaURL, mimeType, prompt)
	common.LogAICall("vision", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.recordUsage(ctx, meta, completion, time.Since(start))
	return completion, nil
}

// recordUsage 成功呼叫才入帳，寫入失敗只記日誌不影響主流程
func (s *Service) recordUsage(ctx context.Context, meta UsageMeta, completion *provider.Completion, duration time.Duration) {
	if s.usage == nil {
		return
	}
	err := s.usage.InsertUsageLog(ctx, &common.AIUsageLog{
		Platform:      meta.Platform,
		UniqueVideoID: meta.UniqueVideoID,
		Purpose:       meta.Purpose,
		Provider:      completion.Provider,
		AIModel:       completion.Model,
		TokensUsed:    completion.TokensUsed,
		DurationMS:    duration.Milliseconds(),
	})
	if err != nil {
		common.LogError("用量紀錄寫入失敗", zap.Error(err))
	}
}

// Close 關閉所有供應者
func (s *Service) Close() error {
	for _, entry := range s.chain {
		_ = entry.Provider.Close()
	}
	if s.vision != nil {
		_ = s.vision.Close()
	}
	return nil
}
