package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-extractor/internal/pkg/common"
)

func TestResolveIdentity_YouTubeVariants(t *testing.T) {
	// 同一支影片的各種 URL 形態要收斂到同一組識別
	urls := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=30s&utm_source=share",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ",
	}
	for _, url := range urls {
		identity, err := ResolveIdentity(url)
		require.NoError(t, err, url)
		assert.Equal(t, common.PlatformYouTube, identity.Platform, url)
		assert.Equal(t, "dQw4w9WgXcQ", identity.UniqueVideoID, url)
	}
}

func TestResolveIdentity_TikTok(t *testing.T) {
	identity, err := ResolveIdentity("https://www.tiktok.com/@cook/video/7234567890123456789")
	require.NoError(t, err)
	assert.Equal(t, common.PlatformTikTok, identity.Platform)
	assert.Equal(t, "7234567890123456789", identity.UniqueVideoID)
}

func TestResolveIdentity_Instagram(t *testing.T) {
	tests := []struct {
		url string
		id  string
	}{
		{"https://www.instagram.com/reel/Cabc123_xy/", "Cabc123_xy"},
		{"https://www.instagram.com/p/Cdef456-zz/", "Cdef456-zz"},
		{"https://www.instagram.com/tv/Cghi789abc/", "Cghi789abc"},
	}
	for _, tt := range tests {
		identity, err := ResolveIdentity(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, common.PlatformInstagram, identity.Platform)
		assert.Equal(t, tt.id, identity.UniqueVideoID)
	}
}

func TestResolveIdentity_Errors(t *testing.T) {
	// 不支援的平台
	_, err := ResolveIdentity("https://vimeo.com/123456")
	assert.ErrorIs(t, err, common.ErrMediaResolution)

	// 平台對但取不出影片 ID
	_, err = ResolveIdentity("https://www.youtube.com/")
	assert.ErrorIs(t, err, common.ErrMediaResolution)
}

func TestNormalizeWatchURL(t *testing.T) {
	identity, err := ResolveIdentity("https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", NormalizeWatchURL(identity))

	tiktok := &common.VideoIdentity{
		Platform:      common.PlatformTikTok,
		UniqueVideoID: "7234567890123456789",
		URL:           "https://www.tiktok.com/@cook/video/7234567890123456789",
	}
	assert.Equal(t, tiktok.URL, NormalizeWatchURL(tiktok))
}
