package video

import (
	"fmt"
	"regexp"
	"strings"

	"recipe-extractor/internal/pkg/common"
)

// 各平台的影片 ID 樣式
// YouTube ID 固定 11 碼；TikTok 為數字 ID；Instagram 為 reel/p/tv 短碼
var (
	youtubePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})`),
	}
	tiktokPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/video/(\d+)`),
		regexp.MustCompile(`/v/(\d+)`),
	}
	instagramPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/reel/([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`/p/([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`/tv/([A-Za-z0-9_-]+)`),
	}
)

// DetectPlatform 從 URL 判定平台
func DetectPlatform(url string) common.Platform {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be"):
		return common.PlatformYouTube
	case strings.Contains(lower, "tiktok.com"):
		return common.PlatformTikTok
	case strings.Contains(lower, "instagram.com"):
		return common.PlatformInstagram
	default:
		return common.PlatformUnknown
	}
}

// ResolveIdentity 解析 URL 為 (platform, unique_video_id)
// 同一支影片的各種 URL 形態（watch、shorts、youtu.be、帶追蹤參數）
// 都收斂到同一組識別，作為快取鍵
func ResolveIdentity(url string) (*common.VideoIdentity, error) {
	platform := DetectPlatform(url)

	var patterns []*regexp.Regexp
	switch platform {
	case common.PlatformYouTube:
		patterns = youtubePatterns
	case common.PlatformTikTok:
		patterns = tiktokPatterns
	case common.PlatformInstagram:
		patterns = instagramPatterns
	default:
		return nil, fmt.Errorf("%w: unsupported platform for url %q", common.ErrMediaResolution, url)
	}

	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(url); m != nil {
			return &common.VideoIdentity{
				Platform:      platform,
				UniqueVideoID: m[1],
				URL:           url,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot extract video id from %q", common.ErrMediaResolution, url)
}

// NormalizeWatchURL 轉為標準觀看 URL
// YouTube shorts 與 youtu.be 短連結統一成 watch?v= 形式，其他平台原樣返回
func NormalizeWatchURL(identity *common.VideoIdentity) string {
	if identity.Platform == common.PlatformYouTube {
		return fmt.Sprintf("https://www.youtube.com/watch?v=%s", identity.UniqueVideoID)
	}
	return identity.URL
}
