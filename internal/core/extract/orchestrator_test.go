package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-extractor/internal/core/ai/service"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"
	"recipe-extractor/internal/store"
)

// fakeGatherer 回傳固定候選文字
type fakeGatherer struct {
	candidates []common.CandidateText
}

func (f *fakeGatherer) GatherCandidates(_ context.Context, _ *common.VideoIdentity) []common.CandidateText {
	return f.candidates
}

// fakeAnalyzer 可指定結果或錯誤的假影片解析層
type fakeAnalyzer struct {
	outcome *AnalysisOutcome
	err     error
	calls   int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ *common.VideoIdentity, _ service.UsageMeta) (*AnalysisOutcome, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func pipelineConfig(aiValidation bool) *config.Config {
	return &config.Config{
		Detector:   config.DetectorConfig{MinKeywordMatches: 1, AIValidation: aiValidation},
		Refinement: config.RefinementConfig{Enabled: true, MaxTokens: 2000},
	}
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newOrchestrator(t *testing.T, st store.Store, gatherer *fakeGatherer, ai *fakeCompleter, analyzer *fakeAnalyzer, cfg *config.Config) *Orchestrator {
	t.Helper()
	return NewOrchestrator(st, gatherer, NewDetector(ai, cfg), NewRefiner(ai, cfg), analyzer)
}

const testVideoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestExtract_DescriptionSuccess(t *testing.T) {
	st := newTestStore(t)
	gatherer := &fakeGatherer{candidates: []common.CandidateText{
		{Source: common.SourceDescription, RawText: "【材料】\n卵: 2個\n【作り方】\n1. 焼く"},
	}}
	ai := &fakeCompleter{response: `{"dish_name": "卵焼き", "ingredients": ["卵: 2個"], "steps": ["焼く"]}`}
	analyzer := &fakeAnalyzer{}
	o := newOrchestrator(t, st, gatherer, ai, analyzer, pipelineConfig(false))

	result, err := o.Extract(context.Background(), testVideoURL, false)
	require.NoError(t, err)

	assert.Equal(t, common.PlatformYouTube, result.Platform)
	assert.Equal(t, "dQw4w9WgXcQ", result.UniqueVideoID)
	assert.Equal(t, common.MethodDescription, result.ExtractionMethod)
	assert.Equal(t, common.RefinementSuccess, result.RefinementStatus)
	assert.Equal(t, "check description → success", result.ExtractionFlow)
	assert.Equal(t, "google/gemma-3-27b-it:free", result.AIModel)
	assert.False(t, result.FromCache)
	require.NotNil(t, result.Recipe)
	assert.Equal(t, "卵焼き", result.Recipe.DishName)
	// 影片層不能被觸發
	assert.Equal(t, 0, analyzer.calls)

	// 結果要落帳
	rec, err := st.GetRecord(context.Background(), common.PlatformYouTube, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, common.MethodDescription, rec.Method)
}

func TestExtract_CacheHitIsTerminal(t *testing.T) {
	st := newTestStore(t)
	gatherer := &fakeGatherer{candidates: []common.CandidateText{
		{Source: common.SourceDescription, RawText: "【材料】\n卵: 2個"},
	}}
	ai := &fakeCompleter{response: `{"dish_name": "卵焼き", "ingredients": ["卵: 2個"], "steps": ["焼く"]}`}
	o := newOrchestrator(t, st, gatherer, ai, &fakeAnalyzer{}, pipelineConfig(false))

	ctx := context.Background()
	first, err := o.Extract(ctx, testVideoURL, false)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	callsAfterFirst := ai.calls

	// 快取命中即終局：第二次不走任何層，AI 呼叫數不變
	second, err := o.Extract(ctx, testVideoURL, false)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.RecipeText, second.RecipeText)
	assert.Equal(t, first.ExtractionFlow, second.ExtractionFlow)
	assert.Equal(t, callsAfterFirst, ai.calls)

	// 短連結也要命中同一筆
	third, err := o.Extract(ctx, "https://youtu.be/dQw4w9WgXcQ", false)
	require.NoError(t, err)
	assert.True(t, third.FromCache)
}

func TestExtract_FallsThroughToVideo(t *testing.T) {
	st := newTestStore(t)
	// 說明欄零命中；留言命中關鍵字但 AI 判定非食譜
	gatherer := &fakeGatherer{candidates: []common.CandidateText{
		{Source: common.SourceDescription, RawText: "今日もありがとう！"},
		{Source: common.SourceComment, RawText: "BGM: 曲名 100g"},
	}}
	ai := &fakeCompleter{response: `{"no_recipe": true, "reason": "宣伝のみ"}`}
	analyzer := &fakeAnalyzer{outcome: &AnalysisOutcome{
		Recipe: &common.RefinedRecipe{
			DishName:    "ズッキーニのソテー",
			Ingredients: []common.Ingredient{{Name: "ズッキーニ", Amount: "1", Unit: "本"}},
			Steps:       []string{"切る", "焼く"},
		},
		RefinedText: "【料理名】\nズッキーニのソテー",
		TokensUsed:  512,
		Model:       "gemini-2.0-flash",
	}}
	o := newOrchestrator(t, st, gatherer, ai, analyzer, pipelineConfig(true))

	result, err := o.Extract(context.Background(), testVideoURL, false)
	require.NoError(t, err)

	assert.Equal(t, common.MethodAIVideo, result.ExtractionMethod)
	// 影片層自己產出結構化結果，不經過整形層
	assert.Equal(t, common.RefinementNotApplicable, result.RefinementStatus)
	assert.Equal(t,
		"check description → no recipe → check comment → no recipe → video analysis → success",
		result.ExtractionFlow)
	require.NotNil(t, result.TokensUsed)
	assert.Equal(t, 512, *result.TokensUsed)
	require.NotNil(t, result.Recipe)
	assert.Equal(t, "ズッキーニのソテー", result.Recipe.DishName)
	// 說明欄零命中不打 AI，留言層打一次驗證
	assert.Equal(t, 1, ai.calls)
	assert.Equal(t, 1, analyzer.calls)
}

func TestExtract_VideoFailureIsPersisted(t *testing.T) {
	st := newTestStore(t)
	gatherer := &fakeGatherer{}
	ai := &fakeCompleter{}
	analyzer := &fakeAnalyzer{err: fmt.Errorf("analysis: %w", common.ErrNoRecipe)}
	o := newOrchestrator(t, st, gatherer, ai, analyzer, pipelineConfig(true))

	ctx := context.Background()
	result, err := o.Extract(ctx, testVideoURL, false)
	require.NoError(t, err)

	assert.Equal(t, common.MethodAIVideo, result.ExtractionMethod)
	assert.Equal(t, common.RefinementFailed, result.RefinementStatus)
	assert.Equal(t, "video analysis → failed", result.ExtractionFlow)
	require.NotNil(t, result.RefinementError)
	assert.Contains(t, *result.RefinementError, "no recipe")

	// 失敗也是終態：重抽不會重新觸發影片層
	second, err := o.Extract(ctx, testVideoURL, false)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, analyzer.calls)
}

func TestExtract_ForceRefresh(t *testing.T) {
	st := newTestStore(t)
	gatherer := &fakeGatherer{candidates: []common.CandidateText{
		{Source: common.SourceDescription, RawText: "【材料】\n卵: 2個"},
	}}
	ai := &fakeCompleter{response: `{"dish_name": "卵焼き", "ingredients": ["卵: 2個"], "steps": ["焼く"]}`}
	o := newOrchestrator(t, st, gatherer, ai, &fakeAnalyzer{}, pipelineConfig(false))

	ctx := context.Background()
	_, err := o.Extract(ctx, testVideoURL, false)
	require.NoError(t, err)

	ai.response = `{"dish_name": "だし巻き卵", "ingredients": ["卵: 3個"], "steps": ["巻く"]}`
	result, err := o.Extract(ctx, testVideoURL, true)
	require.NoError(t, err)

	// 強制重抽＝先刪再抽，不吃舊快取
	assert.False(t, result.FromCache)
	assert.Equal(t, "だし巻き卵", result.Recipe.DishName)
}

func TestExtract_InvalidURL(t *testing.T) {
	o := newOrchestrator(t, newTestStore(t), &fakeGatherer{}, &fakeCompleter{}, &fakeAnalyzer{}, pipelineConfig(false))

	_, err := o.Extract(context.Background(), "not-a-video-url", false)
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
}

// conflictStore 在寫入時固定回報唯一鍵衝突，模擬並行請求先寫贏
type conflictStore struct {
	store.Store
	existing *common.ExtractionRecord
}

func (c *conflictStore) GetRecord(ctx context.Context, platform common.Platform, id string) (*common.ExtractionRecord, error) {
	if c.existing == nil {
		return nil, common.ErrRecordNotFound
	}
	return c.existing, nil
}

func (c *conflictStore) InsertRecord(_ context.Context, rec *common.ExtractionRecord) error {
	c.existing = &common.ExtractionRecord{
		Platform:         rec.Platform,
		UniqueVideoID:    rec.UniqueVideoID,
		Method:           common.MethodDescription,
		RefinedText:      "winner's record",
		RefinementStatus: common.RefinementSuccess,
		ExtractionFlow:   "check description → success",
	}
	return common.ErrRecordConflict
}

func TestExtract_InsertConflictServedAsCacheHit(t *testing.T) {
	cs := &conflictStore{Store: newTestStore(t)}
	gatherer := &fakeGatherer{candidates: []common.CandidateText{
		{Source: common.SourceDescription, RawText: "【材料】\n卵: 2個"},
	}}
	ai := &fakeCompleter{response: `{"dish_name": "卵焼き", "ingredients": ["卵: 2個"], "steps": ["焼く"]}`}
	o := newOrchestrator(t, cs, gatherer, ai, &fakeAnalyzer{}, pipelineConfig(false))

	result, err := o.Extract(context.Background(), testVideoURL, false)
	require.NoError(t, err)

	// 輸家的寫入改用既有紀錄，對呼叫方呈現為快取命中
	assert.True(t, result.FromCache)
	assert.Equal(t, "winner's record", result.RecipeText)
}
