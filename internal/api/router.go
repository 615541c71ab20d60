package api

import (
	"context"
	"fmt"
	"time"

	"recipe-extractor/internal/api/handlers"
	extractHandler "recipe-extractor/internal/api/handlers/extract"
	"recipe-extractor/internal/api/handlers/health"
	videoHandler "recipe-extractor/internal/api/handlers/video"
	"recipe-extractor/internal/api/middleware"
	"recipe-extractor/internal/core/ai/cache"
	"recipe-extractor/internal/core/ai/gemini"
	"recipe-extractor/internal/core/ai/openrouter"
	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/core/ai/queue"
	"recipe-extractor/internal/core/ai/service"
	"recipe-extractor/internal/core/extract"
	"recipe-extractor/internal/core/video"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"
	"recipe-extractor/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置：影片解析會吃掉大半預算
	timeoutDuration = 300 * time.Second
	// 請求體大小限制 (1MB)：這裡只收 URL，不收媒體
	maxBodySize = 1 << 20
)

// SetupRouter 設置路由並組裝管線
func SetupRouter(cfg *config.Config, st store.Store) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 請求去重：同一支影片的連點在視窗內只放行一次
	router.Use(middleware.Deduplication(cfg))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Strings("text_models", cfg.OpenRouter.TextModels),
		zap.Duration("timeout", timeoutDuration),
	)

	// 組裝備援鏈：OpenRouter 各模型依序在前，Gemini 文字模型收尾
	var chain []provider.ChainEntry
	if cfg.OpenRouter.APIKey != "" {
		orClient := openrouter.NewClient(cfg)
		for _, model := range cfg.OpenRouter.TextModels {
			chain = append(chain, provider.ChainEntry{Provider: orClient, Model: model})
		}
	}

	var geminiClient *gemini.Client
	if cfg.Gemini.APIKey != "" {
		var err error
		geminiClient, err = gemini.NewClient(context.Background(), cfg)
		if err != nil {
			common.LogError("Failed to initialize Gemini client", zap.Error(err))
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		if cfg.Gemini.TextModel != "" {
			chain = append(chain, provider.ChainEntry{Provider: geminiClient, Model: cfg.Gemini.TextModel})
		}
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no AI provider configured: set OPENROUTER_API_KEY or GEMINI_API_KEY")
	}

	// 補全快取與併發上限
	completionCache, err := cache.New(cfg)
	if err != nil {
		common.LogError("Failed to initialize completion cache", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize completion cache: %w", err)
	}
	limiter := queue.NewLimiter(cfg)

	// 初始化 AI 服務
	aiService, err := service.NewService(chain, geminiClient, completionCache, limiter, st)
	if err != nil {
		common.LogError("Failed to initialize AI service", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize AI service: %w", err)
	}

	// 組裝抽取管線
	gatherer := video.NewGatherer(cfg)
	mediaResolver := video.NewMediaResolver(cfg)
	detector := extract.NewDetector(aiService, cfg)
	refiner := extract.NewRefiner(aiService, cfg)
	analyzer := extract.NewVideoAnalyzer(aiService, mediaResolver)
	orchestrator := extract.NewOrchestrator(st, gatherer, detector, refiner, analyzer)

	common.LogInfo("Extraction pipeline initialized",
		zap.Int("chain_length", len(chain)),
		zap.Bool("vision_enabled", geminiClient != nil),
		zap.Int("min_keyword_matches", cfg.Detector.MinKeywordMatches),
	)

	// 全局中間件：設置超時與依賴
	router.Use(func(c *gin.Context) {
		// 設置請求超時
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)
		c.Set("ai_limiter", limiter)
		c.Set("store_ping", st.Ping)

		// 處理請求
		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(common.ErrGatewayTimeout.Status,
				common.ErrGatewayTimeout.Response("request exceeded "+timeoutDuration.String()))
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		extractInstance := extractHandler.NewHandler(orchestrator)
		videoInstance := videoHandler.NewHandler(gatherer)
		aiInstance := handlers.NewAIHandler(chain, st)

		// 食譜抽取
		recipeGroup := api.Group("/recipe")
		{
			recipeGroup.POST("/extract", extractInstance.HandleExtract)
		}

		// 影片中繼資料
		videoGroup := api.Group("/video")
		{
			videoGroup.POST("/metadata", videoInstance.HandleMetadata)
		}

		// 備援鏈與用量
		aiGroup := api.Group("/ai")
		{
			aiGroup.GET("/models", aiInstance.ListModels)
			aiGroup.GET("/usage", aiInstance.ListUsage)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
