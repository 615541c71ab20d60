package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Client Gemini API 客戶端
// 文字補全作為備援鏈尾端，影片解析則只走這裡
type Client struct {
	client      *genai.Client
	visionModel string
}

// NewClient 創建新的 Gemini 客戶端
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	clientConfig := &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	}
	// 影片解析一趟可能很久，逾時由配置控制
	if cfg.Gemini.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Gemini.Timeout}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Client{
		client:      client,
		visionModel: cfg.Gemini.VisionModel,
	}, nil
}

func (c *Client) Name() string {
	return "gemini"
}

// Complete 以指定模型生成單輪補全
func (c *Client) Complete(ctx context.Context, model, prompt string, maxTokens int) (*provider.Completion, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	var genConfig *genai.GenerateContentConfig
	if maxTokens > 0 {
		genConfig = &genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)}
	}

	result, err := c.client.Models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		if isRateLimited(err) {
			common.LogWarn("Gemini 速率限制", zap.String("model", model))
			return nil, fmt.Errorf("gemini: model %s: %w", model, common.ErrRateLimited)
		}
		common.LogError("Gemini 請求失敗",
			zap.Error(err),
			zap.String("model", model),
		)
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	text := result.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: empty response")
	}

	completion := &provider.Completion{
		Content:  text,
		Provider: c.Name(),
		Model:    model,
	}
	if result.UsageMetadata != nil {
		completion.PromptTokens = int(result.UsageMetadata.PromptTokenCount)
		completion.CompletionTokens = int(result.UsageMetadata.CandidatesTokenCount)
		completion.TokensUsed = int(result.UsageMetadata.TotalTokenCount)
	}

	common.LogDebug("Gemini 補全完成",
		zap.String("model", model),
		zap.Int("content_length", len(text)),
		zap.Int("total_tokens", completion.TokensUsed),
	)
	return completion, nil
}

// AnalyzeVideo 直接對影片媒體提問，回傳模型輸出與用量
// mediaURL 必須是模型可直接存取的媒體位址（YouTube 連結或橋接後的 mp4）
func (c *Client) AnalyzeVideo(ctx context.Context, mediaURL, mimeType, prompt string) (*provider.Completion, error) {
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromURI(mediaURL, mimeType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.visionModel, contents, nil)
	if err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("gemini: vision model %s: %w", c.visionModel, common.ErrRateLimited)
		}
		common.LogError("Gemini 影片解析失敗",
			zap.Error(err),
			zap.String("model", c.visionModel),
			zap.String("media_url", mediaURL),
		)
		return nil, fmt.Errorf("gemini: analyze video: %w", err)
	}

	text := result.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: empty video analysis response")
	}

	completion := &provider.Completion{
		Content:  text,
		Provider: c.Name(),
		Model:    c.visionModel,
	}
	if result.UsageMetadata != nil {
		completion.PromptTokens = int(result.UsageMetadata.PromptTokenCount)
		completion.CompletionTokens = int(result.UsageMetadata.CandidatesTokenCount)
		completion.TokensUsed = int(result.UsageMetadata.TotalTokenCount)
	}
	return completion, nil
}

// Close 關閉客戶端
func (c *Client) Close() error {
	return nil
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}
