package queue

import (
	"context"
	"fmt"
	"sync/atomic"

	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"go.uber.org/zap"
)

// Status 併發狀態
type Status struct {
	InFlight       int   `json:"in_flight"`
	Waiting        int   `json:"waiting"`
	MaxConcurrent  int   `json:"max_concurrent"`
	MaxWaiting     int   `json:"max_waiting"`
	ProcessedCount int64 `json:"processed_count"`
}

// Limiter 對外部 AI 供應商的併發上限
// 同時在途的請求不超過 MaxConcurrent，排隊中的不超過 MaxWaiting
type Limiter struct {
	config    *config.Config
	slots     chan struct{}
	waiting   int64
	processed int64
	done      chan struct{}
}

// NewLimiter 創建併發限制器
func NewLimiter(cfg *config.Config) *Limiter {
	return &Limiter{
		config: cfg,
		slots:  make(chan struct{}, cfg.Queue.MaxConcurrent),
		done:   make(chan struct{}),
	}
}

// Acquire 取得一個執行名額，成功後必須呼叫 release
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	if int(atomic.LoadInt64(&l.waiting)) >= l.config.Queue.MaxWaiting {
		common.LogWarn("AI 請求隊列已滿",
			zap.Int64("waiting", atomic.LoadInt64(&l.waiting)),
			zap.Int("max_waiting", l.config.Queue.MaxWaiting),
		)
		return nil, fmt.Errorf("ai request queue is full")
	}

	atomic.AddInt64(&l.waiting, 1)
	defer atomic.AddInt64(&l.waiting, -1)

	select {
	case l.slots <- struct{}{}:
		return func() {
			<-l.slots
			atomic.AddInt64(&l.processed, 1)
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, fmt.Errorf("limiter is closed")
	}
}

// GetStatus 獲取併發狀態
func (l *Limiter) GetStatus() *Status {
	return &Status{
		InFlight:       len(l.slots),
		Waiting:        int(atomic.LoadInt64(&l.waiting)),
		MaxConcurrent:  l.config.Queue.MaxConcurrent,
		MaxWaiting:     l.config.Queue.MaxWaiting,
		ProcessedCount: atomic.LoadInt64(&l.processed),
	}
}

// Close 關閉限制器
func (l *Limiter) Close() {
	close(l.done)
}
