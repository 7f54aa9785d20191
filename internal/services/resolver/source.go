package resolver

import (
	"net/url"
	"strings"
)

// Platform identifies the video host of a URL.
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformTikTok  Platform = "tiktok"
	PlatformUnknown Platform = "unknown"
)

// Origin names where SourceText.Text came from.
type Origin string

const (
	OriginNone     Origin = "none"
	OriginCaptions Origin = "captions"
	OriginScrape   Origin = "scrape"
	OriginOEmbed   Origin = "oembed"
)

// SourceText is the best-effort native text about one video.
// Text is always set, possibly to "".
type SourceText struct {
	Platform Platform `json:"platform"`
	Title    string   `json:"title,omitempty"`
	Author   string   `json:"author,omitempty"`
	Text     string   `json:"text"`
	Origin   Origin   `json:"origin"`
}

// DetectPlatform classifies a URL by hostname.
func DetectPlatform(rawURL string) Platform {
	host := hostname(rawURL)
	switch {
	case strings.Contains(host, "youtube.com"), strings.Contains(host, "youtu.be"):
		return PlatformYouTube
	case strings.Contains(host, "tiktok.com"):
		return PlatformTikTok
	default:
		return PlatformUnknown
	}
}

// YouTubeVideoID extracts the video identifier from youtu.be/<id>, watch?v=<id>
// and shorts/<id> URLs. It returns "" when none of those shapes match.
func YouTubeVideoID(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })

	if strings.Contains(host, "youtu.be") {
		if len(segments) > 0 {
			return segments[0]
		}
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	for i, seg := range segments {
		if seg == "shorts" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}

func hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Hostname())
}
