package video

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"recipe-extractor/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
)

// Metadata 影片的展示用中繼資料
type Metadata struct {
	Platform      common.Platform `json:"platform"`
	UniqueVideoID string          `json:"unique_video_id"`
	Title         string          `json:"title"`
	ThumbnailURL  string          `json:"thumbnailUrl"`
	AuthorName    string          `json:"authorName"`
}

// FetchMetadata 取得影片標題、縮圖與作者
// YouTube 走 Data API，TikTok 走 oEmbed，Instagram 只能刮 og 標籤
func (g *Gatherer) FetchMetadata(ctx context.Context, identity *common.VideoIdentity) (*Metadata, error) {
	meta := &Metadata{
		Platform:      identity.Platform,
		UniqueVideoID: identity.UniqueVideoID,
	}

	switch identity.Platform {
	case common.PlatformYouTube:
		if err := g.fillYouTubeMetadata(ctx, meta); err != nil {
			return nil, err
		}
	case common.PlatformTikTok:
		if err := g.fillOEmbedMetadata(ctx, identity.URL, meta); err != nil {
			return nil, err
		}
	case common.PlatformInstagram:
		if err := g.fillOpenGraphMetadata(ctx, identity.URL, meta); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unsupported platform", common.ErrMediaResolution)
	}
	return meta, nil
}

func (g *Gatherer) fillYouTubeMetadata(ctx context.Context, meta *Metadata) error {
	if g.config.YouTube.APIKey == "" {
		return fmt.Errorf("youtube api key not configured")
	}

	var result struct {
		Items []struct {
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
				Thumbnails   struct {
					High struct {
						URL string `json:"url"`
					} `json:"high"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	resp, err := g.api.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part": "snippet",
			"id":   meta.UniqueVideoID,
			"key":  g.config.YouTube.APIKey,
		}).
		SetResult(&result).
		Get("/videos")
	if err != nil {
		return fmt.Errorf("youtube videos api: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("youtube videos api: status %d", resp.StatusCode())
	}
	if len(result.Items) == 0 {
		return fmt.Errorf("youtube video not found: %s", meta.UniqueVideoID)
	}

	snippet := result.Items[0].Snippet
	meta.Title = snippet.Title
	meta.ThumbnailURL = snippet.Thumbnails.High.URL
	meta.AuthorName = snippet.ChannelTitle
	return nil
}

func (g *Gatherer) fillOEmbedMetadata(ctx context.Context, videoURL string, meta *Metadata) error {
	var result struct {
		Title        string `json:"title"`
		AuthorName   string `json:"author_name"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	resp, err := g.page.R().
		SetContext(ctx).
		SetResult(&result).
		Get("https://www.tiktok.com/oembed?url=" + url.QueryEscape(videoURL))
	if err != nil {
		return fmt.Errorf("tiktok oembed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("tiktok oembed: status %d", resp.StatusCode())
	}

	meta.Title = strings.TrimSpace(result.Title)
	meta.AuthorName = result.AuthorName
	meta.ThumbnailURL = result.ThumbnailURL
	return nil
}

func (g *Gatherer) fillOpenGraphMetadata(ctx context.Context, videoURL string, meta *Metadata) error {
	resp, err := g.page.R().
		SetContext(ctx).
		Get(videoURL)
	if err != nil {
		return fmt.Errorf("fetch page: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("fetch page: status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	readMeta := func(property string) string {
		value := ""
		doc.Find(fmt.Sprintf("meta[property='%s']", property)).Each(func(i int, s *goquery.Selection) {
			if value == "" {
				value, _ = s.Attr("content")
			}
		})
		return strings.TrimSpace(value)
	}

	meta.Title = readMeta("og:title")
	meta.ThumbnailURL = readMeta("og:image")

	// og:title 常是「作者 on Instagram: "..."」，切出作者名
	if idx := strings.Index(meta.Title, " on Instagram"); idx > 0 {
		meta.AuthorName = meta.Title[:idx]
	}
	return nil
}
