package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/core/ai/service"
	coreextract "recipe-extractor/internal/core/extract"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"
	"recipe-extractor/internal/store"
)

type stubGatherer struct{}

func (stubGatherer) GatherCandidates(_ context.Context, _ *common.VideoIdentity) []common.CandidateText {
	return []common.CandidateText{
		{Source: common.SourceDescription, RawText: "【材料】\n卵: 2個\n【作り方】\n1. 焼く"},
	}
}

type stubCompleter struct{}

func (stubCompleter) Complete(_ context.Context, _ string, _ int, _ service.UsageMeta) (*provider.Completion, error) {
	return &provider.Completion{
		Content:    `{"dish_name": "卵焼き", "ingredients": ["卵: 2個"], "steps": ["焼く"]}`,
		Provider:   "openrouter",
		Model:      "google/gemma-3-27b-it:free",
		TokensUsed: 42,
	}, nil
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, _ *common.VideoIdentity, _ service.UsageMeta) (*coreextract.AnalysisOutcome, error) {
	return nil, common.ErrNoRecipe
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	cfg := &config.Config{
		Detector:   config.DetectorConfig{MinKeywordMatches: 1},
		Refinement: config.RefinementConfig{Enabled: true},
	}
	orchestrator := coreextract.NewOrchestrator(
		st,
		stubGatherer{},
		coreextract.NewDetector(stubCompleter{}, cfg),
		coreextract.NewRefiner(stubCompleter{}, cfg),
		stubAnalyzer{},
	)

	router := gin.New()
	router.POST("/api/v1/recipe/extract", NewHandler(orchestrator).HandleExtract)
	return router
}

func postExtract(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipe/extract", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleExtract_Success(t *testing.T) {
	router := newTestRouter(t)

	w := postExtract(t, router, `{"video_url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result coreextract.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, common.PlatformYouTube, result.Platform)
	assert.Equal(t, "dQw4w9WgXcQ", result.UniqueVideoID)
	assert.Equal(t, common.MethodDescription, result.ExtractionMethod)
	assert.Equal(t, common.RefinementSuccess, result.RefinementStatus)
	assert.False(t, result.FromCache)

	// 同一支影片第二次請求要吃快取
	w = postExtract(t, router, `{"video_url": "https://youtu.be/dQw4w9WgXcQ"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.FromCache)
}

func TestHandleExtract_MissingVideoURL(t *testing.T) {
	router := newTestRouter(t)

	w := postExtract(t, router, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, common.ErrInvalidRequest.Code, resp.Code)
	assert.Equal(t, common.ErrInvalidRequest.Message, resp.Message)
	assert.NotEmpty(t, resp.Details)
}

func TestHandleExtract_InvalidVideoURL(t *testing.T) {
	router := newTestRouter(t)

	w := postExtract(t, router, `{"video_url": "https://example.com/not-a-video"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, common.ErrInvalidVideoURL.Code, resp.Code)
	assert.Equal(t, common.ErrInvalidVideoURL.Message, resp.Message)
}
