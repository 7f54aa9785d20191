package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const playerResponseMarker = "ytInitialPlayerResponse"

var excessNewlinesRE = regexp.MustCompile(`(?:[ \t]*\n){3,}`)

type playerResponse struct {
	Captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type timedText struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// pickTrack prefers an English track and otherwise takes the first one.
func pickTrack(tracks []captionTrack) (captionTrack, bool) {
	if len(tracks) == 0 {
		return captionTrack{}, false
	}
	for _, t := range tracks {
		if strings.HasPrefix(strings.ToLower(t.LanguageCode), "en") {
			return t, true
		}
	}
	return tracks[0], true
}

// scrapeCaptions reads the caption track list embedded in the public watch page
// and flattens the chosen track's timed text.
func (r *Resolver) scrapeCaptions(ctx context.Context, videoID string) (string, error) {
	watchURL := r.endpoints.YouTubeWatch + "?v=" + url.QueryEscape(videoID) + "&hl=en"
	page, err := r.get(ctx, "youtube-watch", watchURL, watchPageLimit)
	if err != nil {
		return "", err
	}

	raw, ok := ExtractJSONObject(string(page), playerResponseMarker)
	if !ok {
		return "", ErrMarkerNotFound
	}
	var player playerResponse
	if err := json.Unmarshal([]byte(raw), &player); err != nil {
		return "", fmt.Errorf("decode player response: %w", err)
	}

	track, ok := pickTrack(player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks)
	if !ok || track.BaseURL == "" {
		return "", ErrNoCaptions
	}

	trackURL, err := url.Parse(track.BaseURL)
	if err != nil {
		return "", fmt.Errorf("caption track url: %w", err)
	}
	q := trackURL.Query()
	q.Set("fmt", "json3")
	trackURL.RawQuery = q.Encode()

	body, err := r.get(ctx, "youtube-timedtext", trackURL.String(), timedTextLimit)
	if err != nil {
		return "", err
	}
	var tt timedText
	if err := json.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("decode timed text: %w", err)
	}

	text := flattenTimedText(tt)
	if text == "" {
		return "", ErrEmptyCaptions
	}
	return text, nil
}

func flattenTimedText(tt timedText) string {
	parts := make([]string, 0, len(tt.Events))
	for _, ev := range tt.Events {
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		if s := sb.String(); strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return normalizeCaptionText(strings.Join(parts, " "))
}

func normalizeCaptionText(s string) string {
	return strings.TrimSpace(excessNewlinesRE.ReplaceAllString(s, "\n\n"))
}
