package video

import (
	"context"
	"fmt"
	"net/http"

	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Media 可供視覺模型存取的媒體位址
type Media struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// MediaResolver 解析影片的可存取媒體位址
// YouTube 的標準觀看 URL 可直接餵給視覺模型；
// TikTok/Instagram 需經橋接服務換取直連 mp4
type MediaResolver struct {
	client *resty.Client
	config *config.Config
}

// NewMediaResolver 創建媒體位址解析器
func NewMediaResolver(cfg *config.Config) *MediaResolver {
	client := resty.New().
		SetTimeout(cfg.MediaBridge.Timeout)
	if cfg.MediaBridge.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.MediaBridge.APIKey)
	}
	return &MediaResolver{
		client: client,
		config: cfg,
	}
}

// Resolve 取得影片的可存取媒體位址
func (r *MediaResolver) Resolve(ctx context.Context, identity *common.VideoIdentity) (*Media, error) {
	if identity.Platform == common.PlatformYouTube {
		return &Media{
			URL:      NormalizeWatchURL(identity),
			MimeType: "video/mp4",
		}, nil
	}

	if r.config.MediaBridge.URL == "" {
		return nil, fmt.Errorf("%w: no media bridge configured for platform %s",
			common.ErrMediaResolution, identity.Platform)
	}

	var result struct {
		MediaURL string `json:"media_url"`
		MimeType string `json:"mime_type"`
	}
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"platform": string(identity.Platform),
			"video_id": identity.UniqueVideoID,
			"url":      identity.URL,
		}).
		SetResult(&result).
		Post(r.config.MediaBridge.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: media bridge request: %v", common.ErrMediaResolution, err)
	}
	if resp.StatusCode() != http.StatusOK {
		common.LogWarn("媒體橋接回應錯誤狀態",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("platform", string(identity.Platform)),
		)
		return nil, fmt.Errorf("%w: media bridge status %d", common.ErrMediaResolution, resp.StatusCode())
	}
	if result.MediaURL == "" {
		return nil, fmt.Errorf("%w: media bridge returned empty url", common.ErrMediaResolution)
	}

	mime := result.MimeType
	if mime == "" {
		mime = "video/mp4"
	}
	return &Media{URL: result.MediaURL, MimeType: mime}, nil
}
