package video

import (
	"net/http"

	corevideo "recipe-extractor/internal/core/video"
	"recipe-extractor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 影片中繼資料處理器
type Handler struct {
	gatherer *corevideo.Gatherer
}

// NewHandler 創建中繼資料處理器
func NewHandler(gatherer *corevideo.Gatherer) *Handler {
	return &Handler{gatherer: gatherer}
}

// MetadataRequest 中繼資料請求
type MetadataRequest struct {
	URL string `json:"url" binding:"required"`
}

// HandleMetadata 回傳影片的平台識別與展示用中繼資料
func (h *Handler) HandleMetadata(c *gin.Context) {
	var req MetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(common.ErrInvalidRequest.Status,
			common.ErrInvalidRequest.Response("Missing 'url' field in request body"))
		return
	}

	identity, err := corevideo.ResolveIdentity(req.URL)
	if err != nil {
		c.JSON(common.ErrInvalidVideoURL.Status, common.ErrInvalidVideoURL.Response(err.Error()))
		return
	}

	meta, err := h.gatherer.FetchMetadata(c.Request.Context(), identity)
	if err != nil {
		common.LogError("中繼資料取得失敗",
			zap.Error(err),
			zap.String("url", req.URL),
		)
		c.JSON(common.ErrMetadataFetch.Status, common.ErrMetadataFetch.Response(err.Error()))
		return
	}

	c.JSON(http.StatusOK, meta)
}
