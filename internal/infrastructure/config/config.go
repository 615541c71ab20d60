package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	OpenRouter  OpenRouterConfig  `mapstructure:"openrouter"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	YouTube     YouTubeConfig     `mapstructure:"youtube"`
	MediaBridge MediaBridgeConfig `mapstructure:"media_bridge"`
	Detector    DetectorConfig    `mapstructure:"detector"`
	Refinement  RefinementConfig  `mapstructure:"refinement"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Queue       QueueConfig       `mapstructure:"queue"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	DedupWindow time.Duration     `mapstructure:"dedup_window"`
	LogLevel    string            `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// OpenRouterConfig OpenRouter 配置
// TextModels 依優先順序排列，429 或錯誤時前進到下一個模型
type OpenRouterConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	TextModels []string      `mapstructure:"text_models"`
	MaxTokens  int           `mapstructure:"max_tokens"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// GeminiConfig Gemini 配置
// TextModel 為文字備援鏈的最後一棒，VisionModel 為唯一的影片解析供應商
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	TextModel   string        `mapstructure:"text_model"`
	VisionModel string        `mapstructure:"vision_model"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// YouTubeConfig YouTube Data API 配置
type YouTubeConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxComments int           `mapstructure:"max_comments"`
}

// MediaBridgeConfig 媒體橋接服務配置
// 對無法直接取得媒體檔的平台（TikTok/Instagram）換取可用的媒體位址
type MediaBridgeConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DetectorConfig 食譜偵測配置
// MinKeywordMatches 刻意可調：上游對誤判成本與漏判成本的取捨未定
type DetectorConfig struct {
	MinKeywordMatches int  `mapstructure:"min_keyword_matches"`
	AIValidation      bool `mapstructure:"ai_validation"`
}

// RefinementConfig 整形配置
type RefinementConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	MaxTokens int  `mapstructure:"max_tokens"`
}

// DatabaseConfig 抽取帳本資料庫配置
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig AI 回應快取配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory | redis
	RedisAddr       string        `mapstructure:"redis_addr"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// QueueConfig AI 請求併發上限設定
type QueueConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
	MaxWaiting    int `mapstructure:"max_waiting"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件（不存在時沿用環境變數）
	_ = godotenv.Load()

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("youtube.api_key", "YOUTUBE_API_KEY")
	viper.BindEnv("media_bridge.url", "MEDIA_BRIDGE_URL")
	viper.BindEnv("media_bridge.api_key", "MEDIA_BRIDGE_API_KEY")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.backend", "CACHE_BACKEND")
	viper.BindEnv("cache.redis_addr", "REDIS_ADDR")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 添加調試日誌（logger 尚未初始化，改用 fmt.Println）
	fmt.Println("Loading configuration",
		"openrouter_api_key:", maskAPIKey(viper.GetString("openrouter.api_key")),
		"gemini_api_key:", maskAPIKey(viper.GetString("gemini.api_key")),
		"text_models:", viper.GetStringSlice("openrouter.text_models"),
	)

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-extractor")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// OpenRouter 設定（優先順位: 1→2、錯誤時換下一個模型）
	viper.SetDefault("openrouter.text_models", []string{
		"google/gemma-3-27b-it:free",
		"google/gemma-3-12b-it:free",
	})
	viper.SetDefault("openrouter.max_tokens", 4096)
	viper.SetDefault("openrouter.timeout", "120s")

	// Gemini 設定
	viper.SetDefault("gemini.text_model", "gemini-2.0-flash-lite")
	viper.SetDefault("gemini.vision_model", "gemini-2.0-flash")
	viper.SetDefault("gemini.timeout", "180s")

	// YouTube 設定
	viper.SetDefault("youtube.timeout", "10s")
	viper.SetDefault("youtube.max_comments", 100)

	// 媒體橋接設定
	viper.SetDefault("media_bridge.timeout", "20s")

	// 偵測設定
	viper.SetDefault("detector.min_keyword_matches", 1)
	viper.SetDefault("detector.ai_validation", true)

	// 整形設定
	viper.SetDefault("refinement.enabled", true)
	viper.SetDefault("refinement.max_tokens", 4096)

	// 資料庫設定
	viper.SetDefault("database.path", "data/extractions.db")

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.redis_addr", "localhost:6379")
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	// 併發上限設定
	viper.SetDefault("queue.max_concurrent", 5)
	viper.SetDefault("queue.max_waiting", 100)

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	// 新增 dedup window 預設
	viper.SetDefault("dedup_window", "1s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 備援鏈至少要有一個模型（OpenRouter 鏈或 Gemini 尾端擇一）
	if len(config.OpenRouter.TextModels) == 0 && config.Gemini.TextModel == "" {
		return fmt.Errorf("at least one text model is required")
	}

	// 驗證資料庫設定
	if config.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	// 驗證偵測設定
	if config.Detector.MinKeywordMatches <= 0 {
		return fmt.Errorf("invalid detector min keyword matches")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.Backend != "memory" && config.Cache.Backend != "redis" {
			return fmt.Errorf("invalid cache backend: %s", config.Cache.Backend)
		}
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	// 驗證併發設定
	if config.Queue.MaxConcurrent <= 0 {
		return fmt.Errorf("invalid queue max concurrent")
	}
	if config.Queue.MaxWaiting <= 0 {
		return fmt.Errorf("invalid queue max waiting")
	}

	return nil
}
