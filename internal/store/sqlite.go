package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"recipe-extractor/internal/pkg/common"
)

// SQLiteStore 以 modernc.org/sqlite 實作 Store
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite 開啟指定路徑的 SQLite 資料庫並設定 WAL 模式
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS extraction_records (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	platform          TEXT NOT NULL,
	unique_video_id   TEXT NOT NULL,
	extraction_method TEXT NOT NULL,
	refined_text      TEXT,
	refinement_status TEXT NOT NULL,
	ai_model          TEXT,
	tokens_used       INTEGER NOT NULL DEFAULT 0,
	extraction_flow   TEXT,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(platform, unique_video_id)
);

CREATE TABLE IF NOT EXISTS ai_usage_logs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	platform        TEXT NOT NULL,
	unique_video_id TEXT NOT NULL,
	purpose         TEXT NOT NULL,
	provider        TEXT NOT NULL,
	ai_model        TEXT NOT NULL,
	tokens_used     INTEGER NOT NULL DEFAULT 0,
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_extraction_records_video ON extraction_records(platform, unique_video_id);
CREATE INDEX IF NOT EXISTS idx_ai_usage_logs_video ON ai_usage_logs(platform, unique_video_id);
CREATE INDEX IF NOT EXISTS idx_ai_usage_logs_created_at ON ai_usage_logs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping() error {
	return s.db.Ping()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetRecord(ctx context.Context, platform common.Platform, uniqueVideoID string) (*common.ExtractionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, platform, unique_video_id, extraction_method, refined_text,
		        refinement_status, ai_model, tokens_used, extraction_flow, created_at
		 FROM extraction_records WHERE platform = ? AND unique_video_id = ?`,
		string(platform), uniqueVideoID,
	)

	var rec common.ExtractionRecord
	var platformStr, method, status string
	var refinedText, aiModel, flow sql.NullString
	err := row.Scan(&rec.ID, &platformStr, &rec.UniqueVideoID, &method, &refinedText,
		&status, &aiModel, &rec.TokensUsed, &flow, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get record: %w", err)
	}
	rec.Platform = common.Platform(platformStr)
	rec.Method = common.ExtractionMethod(method)
	rec.RefinementStatus = common.RefinementStatus(status)
	rec.RefinedText = refinedText.String
	rec.AIModel = aiModel.String
	rec.ExtractionFlow = flow.String
	return &rec, nil
}

func (s *SQLiteStore) InsertRecord(ctx context.Context, rec *common.ExtractionRecord) error {
	now := rec.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO extraction_records
		 (platform, unique_video_id, extraction_method, refined_text, refinement_status,
		  ai_model, tokens_used, extraction_flow, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Platform), rec.UniqueVideoID, string(rec.Method),
		nullable(rec.RefinedText), string(rec.RefinementStatus),
		nullable(rec.AIModel), rec.TokensUsed, nullable(rec.ExtractionFlow), now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrRecordConflict
		}
		return fmt.Errorf("sqlite: insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err == nil {
		rec.ID = id
	}
	rec.CreatedAt = now
	return nil
}

func (s *SQLiteStore) DeleteRecord(ctx context.Context, platform common.Platform, uniqueVideoID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM extraction_records WHERE platform = ? AND unique_video_id = ?`,
		string(platform), uniqueVideoID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: delete record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertUsageLog(ctx context.Context, log *common.AIUsageLog) error {
	now := log.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_usage_logs
		 (platform, unique_video_id, purpose, provider, ai_model, tokens_used, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(log.Platform), log.UniqueVideoID, log.Purpose, log.Provider,
		log.AIModel, log.TokensUsed, log.DurationMS, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert usage log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListUsageLogs(ctx context.Context, limit int) ([]common.AIUsageLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, platform, unique_video_id, purpose, provider, ai_model, tokens_used, duration_ms, created_at
		 FROM ai_usage_logs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list usage logs: %w", err)
	}
	defer rows.Close()

	var logs []common.AIUsageLog
	for rows.Next() {
		var l common.AIUsageLog
		var platformStr string
		if err := rows.Scan(&l.ID, &platformStr, &l.UniqueVideoID, &l.Purpose, &l.Provider,
			&l.AIModel, &l.TokensUsed, &l.DurationMS, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan usage log: %w", err)
		}
		l.Platform = common.Platform(platformStr)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list usage logs iterate: %w", err)
	}
	return logs, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation 判斷是否為唯一鍵衝突
// modernc.org/sqlite 的錯誤字串帶有 "UNIQUE constraint failed"
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
