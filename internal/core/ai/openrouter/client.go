package openrouter

import (
	"context"
	"fmt"
	"net/http"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const baseURL = "https://openrouter.ai/api/v1"

// Client OpenRouter API 客戶端
type Client struct {
	client    *resty.Client
	maxTokens int
}

// Message 消息結構
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 表示 API 請求
type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// Response OpenRouter 響應結構
type Response struct {
	ID      string `json:"id"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.OpenRouter.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.OpenRouter.APIKey)).
		SetHeader("HTTP-Referer", "https://recipe-extractor.local").
		SetHeader("X-Title", "Recipe Extractor")

	return &Client{
		client:    client,
		maxTokens: cfg.OpenRouter.MaxTokens,
	}
}

func (c *Client) Name() string {
	return "openrouter"
}

// Complete 以指定模型生成單輪補全
// 429 回應映射為 common.ErrRateLimited，呼叫端據此前進到備援鏈的下一棒
func (c *Client) Complete(ctx context.Context, model, prompt string, maxTokens int) (*provider.Completion, error) {
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	req := &Request{
		Model: model,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
		MaxTokens: maxTokens,
	}

	var result Response
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/chat/completions")

	if err != nil {
		common.LogError("OpenRouter 請求失敗",
			zap.Error(err),
			zap.String("model", model),
		)
		return nil, fmt.Errorf("openrouter: send request: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		common.LogWarn("OpenRouter 速率限制",
			zap.String("model", model),
		)
		return nil, fmt.Errorf("openrouter: model %s: %w", model, common.ErrRateLimited)
	}
	if resp.StatusCode() != http.StatusOK {
		common.LogError("OpenRouter 回應錯誤狀態",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", model),
			zap.String("response", resp.String()),
		)
		return nil, fmt.Errorf("openrouter: status %d: %s", resp.StatusCode(), resp.String())
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("openrouter: empty choices in response")
	}
	content := result.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("openrouter: empty content in response")
	}

	common.LogDebug("OpenRouter 補全完成",
		zap.String("model", model),
		zap.Int("content_length", len(content)),
		zap.Int("total_tokens", result.Usage.TotalTokens),
	)

	return &provider.Completion{
		Content:          content,
		Provider:         c.Name(),
		Model:            model,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TokensUsed:       result.Usage.TotalTokens,
	}, nil
}

// Close 關閉客戶端
func (c *Client) Close() error {
	return nil
}
