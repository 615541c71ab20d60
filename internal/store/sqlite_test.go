package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-extractor/internal/pkg/common"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleRecord() *common.ExtractionRecord {
	return &common.ExtractionRecord{
		Platform:         common.PlatformYouTube,
		UniqueVideoID:    "dQw4w9WgXcQ",
		Method:           common.MethodDescription,
		RefinedText:      "【材料】\n- 卵 2個",
		RefinementStatus: common.RefinementSuccess,
		AIModel:          "google/gemma-3-27b-it:free",
		TokensUsed:       321,
		ExtractionFlow:   "check description → success",
	}
}

func TestSQLite_InsertAndGetRecord(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, st.InsertRecord(ctx, rec))
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := st.GetRecord(ctx, common.PlatformYouTube, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, rec.Method, got.Method)
	assert.Equal(t, rec.RefinedText, got.RefinedText)
	assert.Equal(t, rec.RefinementStatus, got.RefinementStatus)
	assert.Equal(t, rec.AIModel, got.AIModel)
	assert.Equal(t, rec.TokensUsed, got.TokensUsed)
	assert.Equal(t, rec.ExtractionFlow, got.ExtractionFlow)
}

func TestSQLite_GetRecord_Missing(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetRecord(context.Background(), common.PlatformYouTube, "missing")
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}

func TestSQLite_InsertRecord_Conflict(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertRecord(ctx, sampleRecord()))

	dup := sampleRecord()
	dup.RefinedText = "different text"
	err := st.InsertRecord(ctx, dup)
	assert.ErrorIs(t, err, common.ErrRecordConflict)

	// 輸家的寫入不能蓋掉既有紀錄
	got, err := st.GetRecord(ctx, common.PlatformYouTube, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "【材料】\n- 卵 2個", got.RefinedText)
}

func TestSQLite_SameIDAcrossPlatforms(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertRecord(ctx, sampleRecord()))

	other := sampleRecord()
	other.Platform = common.PlatformTikTok
	assert.NoError(t, st.InsertRecord(ctx, other))
}

func TestSQLite_DeleteRecord(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertRecord(ctx, sampleRecord()))
	require.NoError(t, st.DeleteRecord(ctx, common.PlatformYouTube, "dQw4w9WgXcQ"))

	_, err := st.GetRecord(ctx, common.PlatformYouTube, "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	// 刪不存在的紀錄不算錯
	assert.NoError(t, st.DeleteRecord(ctx, common.PlatformYouTube, "dQw4w9WgXcQ"))
}

func TestSQLite_UsageLogs(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, st.InsertUsageLog(ctx, &common.AIUsageLog{
			Platform:      common.PlatformYouTube,
			UniqueVideoID: "dQw4w9WgXcQ",
			Purpose:       "refinement",
			Provider:      "openrouter",
			AIModel:       "google/gemma-3-27b-it:free",
			TokensUsed:    100 + i,
			DurationMS:    1500,
		}))
	}

	logs, err := st.ListUsageLogs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	all, err := st.ListUsageLogs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, l := range all {
		assert.Equal(t, "refinement", l.Purpose)
		assert.Equal(t, common.PlatformYouTube, l.Platform)
	}
}
