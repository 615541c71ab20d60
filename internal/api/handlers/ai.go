package handlers

import (
	"net/http"
	"strconv"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/pkg/common"
	"recipe-extractor/internal/store"

	"github.com/gin-gonic/gin"
)

// AIHandler AI 備援鏈與用量查詢處理器
type AIHandler struct {
	chain []provider.ChainEntry
	store store.Store
}

// NewAIHandler 創建 AI 處理器
func NewAIHandler(chain []provider.ChainEntry, st store.Store) *AIHandler {
	return &AIHandler{chain: chain, store: st}
}

// ListModels 列出備援鏈上的模型，依嘗試順序
func (h *AIHandler) ListModels(c *gin.Context) {
	models := make([]gin.H, 0, len(h.chain))
	for i, entry := range h.chain {
		models = append(models, gin.H{
			"priority": i + 1,
			"provider": entry.Provider.Name(),
			"model":    entry.Model,
		})
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

// ListUsage 列出最近的 AI 用量紀錄
func (h *AIHandler) ListUsage(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := h.store.ListUsageLogs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(common.ErrUsageQuery.Status, common.ErrUsageQuery.Response(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": logs})
}
