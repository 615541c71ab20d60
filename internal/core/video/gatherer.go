package video

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

// Gatherer 收集影片的候選文字（說明欄、投稿者留言）
// 平台差異都收在這裡：YouTube 走 Data API，TikTok/Instagram 只能刮 og:description
type Gatherer struct {
	api    *resty.Client
	page   *resty.Client
	config *config.Config
}

// NewGatherer 創建候選文字收集器
func NewGatherer(cfg *config.Config) *Gatherer {
	api := resty.New().
		SetBaseURL(youtubeAPIBase).
		SetTimeout(cfg.YouTube.Timeout)

	page := resty.New().
		SetTimeout(cfg.YouTube.Timeout).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; recipe-extractor/1.0)")

	return &Gatherer{
		api:    api,
		page:   page,
		config: cfg,
	}
}

// GatherCandidates 依序收集候選文字
// 回傳順序即檢查順序：說明欄在前、投稿者留言在後
// 個別來源失敗只記日誌，不中斷整體收集
func (g *Gatherer) GatherCandidates(ctx context.Context, identity *common.VideoIdentity) []common.CandidateText {
	var candidates []common.CandidateText

	switch identity.Platform {
	case common.PlatformYouTube:
		description, channelID, err := g.fetchYouTubeSnippet(ctx, identity.UniqueVideoID)
		if err != nil {
			common.LogWarn("YouTube 說明欄取得失敗",
				zap.Error(err),
				zap.String("video_id", identity.UniqueVideoID),
			)
		} else if description != "" {
			candidates = append(candidates, common.CandidateText{
				Source:  common.SourceDescription,
				RawText: description,
			})
		}

		if channelID != "" {
			comment, err := g.fetchAuthorComment(ctx, identity.UniqueVideoID, channelID)
			if err != nil {
				common.LogWarn("YouTube 投稿者留言取得失敗",
					zap.Error(err),
					zap.String("video_id", identity.UniqueVideoID),
				)
			} else if comment != "" {
				candidates = append(candidates, common.CandidateText{
					Source:  common.SourceComment,
					RawText: comment,
				})
			}
		}

	case common.PlatformTikTok, common.PlatformInstagram:
		description, err := g.scrapeDescription(ctx, identity.URL)
		if err != nil {
			common.LogWarn("og:description 取得失敗",
				zap.Error(err),
				zap.String("platform", string(identity.Platform)),
				zap.String("url", identity.URL),
			)
		} else if description != "" {
			candidates = append(candidates, common.CandidateText{
				Source:  common.SourceDescription,
				RawText: description,
			})
		}
	}

	return candidates
}

// fetchYouTubeSnippet 取得影片說明欄與頻道 ID
func (g *Gatherer) fetchYouTubeSnippet(ctx context.Context, videoID string) (description, channelID string, err error) {
	if g.config.YouTube.APIKey == "" {
		common.LogWarn("未設定 YouTube API 金鑰，略過說明欄檢查")
		return "", "", nil
	}

	var result struct {
		Items []struct {
			Snippet struct {
				Description string `json:"description"`
				ChannelID   string `json:"channelId"`
			} `json:"snippet"`
		} `json:"items"`
	}

	resp, err := g.api.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part": "snippet",
			"id":   videoID,
			"key":  g.config.YouTube.APIKey,
		}).
		SetResult(&result).
		Get("/videos")
	if err != nil {
		return "", "", fmt.Errorf("youtube videos api: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", "", fmt.Errorf("youtube videos api: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Items) == 0 {
		return "", "", fmt.Errorf("youtube video not found: %s", videoID)
	}

	snippet := result.Items[0].Snippet
	return strings.TrimSpace(snippet.Description), snippet.ChannelID, nil
}

// fetchAuthorComment 在留言串中找投稿者本人的頂層留言
// 只看投稿者的留言：食譜常被創作者補在置頂留言裡，他人留言不可信
func (g *Gatherer) fetchAuthorComment(ctx context.Context, videoID, channelID string) (string, error) {
	if g.config.YouTube.APIKey == "" {
		return "", nil
	}

	var result struct {
		Items []struct {
			Snippet struct {
				TopLevelComment struct {
					Snippet struct {
						TextDisplay     string `json:"textDisplay"`
						AuthorChannelID struct {
							Value string `json:"value"`
						} `json:"authorChannelId"`
					} `json:"snippet"`
				} `json:"topLevelComment"`
			} `json:"snippet"`
		} `json:"items"`
	}

	resp, err := g.api.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part":       "snippet",
			"videoId":    videoID,
			"maxResults": fmt.Sprintf("%d", g.config.YouTube.MaxComments),
			"order":      "relevance",
			"key":        g.config.YouTube.APIKey,
		}).
		SetResult(&result).
		Get("/commentThreads")
	if err != nil {
		return "", fmt.Errorf("youtube commentThreads api: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("youtube commentThreads api: status %d: %s", resp.StatusCode(), resp.String())
	}

	for _, item := range result.Items {
		comment := item.Snippet.TopLevelComment.Snippet
		if comment.AuthorChannelID.Value == channelID {
			if text := strings.TrimSpace(comment.TextDisplay); text != "" {
				return stripHTMLTags(text), nil
			}
		}
	}
	return "", nil
}

// scrapeDescription 從頁面 meta 標籤取 og:description
func (g *Gatherer) scrapeDescription(ctx context.Context, url string) (string, error) {
	resp, err := g.page.R().
		SetContext(ctx).
		SetDoNotParseResponse(false).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("fetch page: status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	description := ""
	doc.Find("meta[property='og:description']").Each(func(i int, s *goquery.Selection) {
		if description == "" {
			description, _ = s.Attr("content")
		}
	})
	return strings.TrimSpace(description), nil
}

// stripHTMLTags 移除 textDisplay 內的 HTML 標籤與 <br> 換行
func stripHTMLTags(text string) string {
	text = strings.ReplaceAll(text, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = strings.ReplaceAll(text, "<br />", "\n")

	var sb strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
