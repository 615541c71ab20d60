package store

import (
	"context"

	"recipe-extractor/internal/pkg/common"
)

// Store 抽取結果帳本
// Insert 採 insert-or-conflict 語意：同一 (platform, unique_video_id) 已存在時
// 回傳 common.ErrRecordConflict，呼叫端以重讀作為快取命中處理
type Store interface {
	// GetRecord 查詢既有抽取結果，未命中回傳 common.ErrRecordNotFound
	GetRecord(ctx context.Context, platform common.Platform, uniqueVideoID string) (*common.ExtractionRecord, error)
	// InsertRecord 寫入新結果，唯一鍵衝突回傳 common.ErrRecordConflict
	InsertRecord(ctx context.Context, rec *common.ExtractionRecord) error
	// DeleteRecord 刪除既有結果（強制重抽用），不存在時不視為錯誤
	DeleteRecord(ctx context.Context, platform common.Platform, uniqueVideoID string) error

	// InsertUsageLog 追加一筆 AI 用量紀錄（僅追加，不更新）
	InsertUsageLog(ctx context.Context, log *common.AIUsageLog) error
	// ListUsageLogs 依時間倒序列出最近的用量紀錄
	ListUsageLogs(ctx context.Context, limit int) ([]common.AIUsageLog, error)

	Migrate(ctx context.Context) error
	Ping() error
	Close() error
}
