package extract

import (
	"net/http"

	coreextract "recipe-extractor/internal/core/extract"
	"recipe-extractor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 食譜抽取處理器
type Handler struct {
	orchestrator *coreextract.Orchestrator
}

// NewHandler 創建抽取處理器
func NewHandler(orchestrator *coreextract.Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// ExtractRequest 抽取請求
type ExtractRequest struct {
	VideoURL     string `json:"video_url" binding:"required"`
	ForceRefresh bool   `json:"force_refresh"`
}

// HandleExtract 執行食譜抽取
// 除了 URL 驗證失敗之外一律回 200：失敗結果帶在 refinement_status 裡
func (h *Handler) HandleExtract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(common.ErrInvalidRequest.Status,
			common.ErrInvalidRequest.Response("Missing 'video_url' field in request body"))
		return
	}

	result, err := h.orchestrator.Extract(c.Request.Context(), req.VideoURL, req.ForceRefresh)
	if err != nil {
		if common.IsValidationError(err) {
			c.JSON(common.ErrInvalidVideoURL.Status, common.ErrInvalidVideoURL.Response(err.Error()))
			return
		}
		common.LogError("抽取請求失敗",
			zap.Error(err),
			zap.String("video_url", req.VideoURL),
		)
		c.JSON(common.ErrExtractionFailed.Status, common.ErrExtractionFailed.Response(err.Error()))
		return
	}

	c.JSON(http.StatusOK, result)
}
