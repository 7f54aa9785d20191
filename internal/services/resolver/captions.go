package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/socialchef/clipchef/internal/httpclient"
	"github.com/socialchef/clipchef/internal/utils"
)

// CaptionFragment is one timed piece of a transcript.
type CaptionFragment struct {
	Text    string
	StartMs string
}

// CaptionFetcher returns the ordered caption fragments of a YouTube video.
type CaptionFetcher interface {
	FetchCaptions(ctx context.Context, videoID string) ([]CaptionFragment, error)
}

const (
	innertubeBaseURL    = "https://www.youtube.com/youtubei/v1"
	innertubeWebVersion = "2.20250222.10.00"
)

// getTranscriptRE finds the continuation token in a raw /next response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

// InnertubeCaptions fetches transcripts through the web client's engagement panel:
// POST /next for the transcript token, then POST /get_transcript with it.
type InnertubeCaptions struct {
	httpClient *http.Client
	baseURL    string
}

// NewInnertubeCaptions creates a CaptionFetcher backed by the Innertube web API.
func NewInnertubeCaptions(httpClient *http.Client) *InnertubeCaptions {
	return &InnertubeCaptions{
		httpClient: httpClient,
		baseURL:    innertubeBaseURL,
	}
}

type webClientContext struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	Hl            string `json:"hl"`
	Gl            string `json:"gl"`
}

type transcriptResponse struct {
	Actions []struct {
		UpdateEngagementPanelAction *struct {
			Content struct {
				TranscriptRenderer struct {
					Content struct {
						TranscriptSearchPanelRenderer struct {
							Body struct {
								TranscriptSegmentListRenderer struct {
									InitialSegments []struct {
										TranscriptSegmentRenderer *struct {
											StartMs string `json:"startMs"`
											Snippet struct {
												Runs []struct {
													Text string `json:"text"`
												} `json:"runs"`
											} `json:"snippet"`
										} `json:"transcriptSegmentRenderer"`
									} `json:"initialSegments"`
								} `json:"transcriptSegmentListRenderer"`
							} `json:"body"`
						} `json:"transcriptSearchPanelRenderer"`
					} `json:"content"`
				} `json:"transcriptRenderer"`
			} `json:"content"`
		} `json:"updateEngagementPanelAction"`
	} `json:"actions"`
}

// FetchCaptions implements CaptionFetcher.
func (c *InnertubeCaptions) FetchCaptions(ctx context.Context, videoID string) ([]CaptionFragment, error) {
	clientCtx := map[string]any{
		"client": webClientContext{
			ClientName:    "WEB",
			ClientVersion: innertubeWebVersion,
			Hl:            "en",
			Gl:            "US",
		},
	}

	nextData, err := c.post(ctx, "/next", map[string]any{
		"videoId": videoID,
		"context": clientCtx,
	})
	if err != nil {
		return nil, fmt.Errorf("/next: %w", err)
	}

	m := getTranscriptRE.FindSubmatch(nextData)
	if len(m) < 2 {
		return nil, ErrTokenNotFound
	}
	// The token is URL-encoded inside the /next payload.
	token, err := url.QueryUnescape(string(m[1]))
	if err != nil {
		token = string(m[1])
	}

	data, err := c.post(ctx, "/get_transcript", map[string]any{
		"params":  token,
		"context": clientCtx,
	})
	if err != nil {
		return nil, fmt.Errorf("/get_transcript: %w", err)
	}

	var resp transcriptResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	var fragments []CaptionFragment
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			if seg.TranscriptSegmentRenderer == nil {
				continue
			}
			var sb strings.Builder
			for _, run := range seg.TranscriptSegmentRenderer.Snippet.Runs {
				sb.WriteString(run.Text)
			}
			if text := strings.TrimSpace(sb.String()); text != "" {
				fragments = append(fragments, CaptionFragment{
					Text:    text,
					StartMs: seg.TranscriptSegmentRenderer.StartMs,
				})
			}
		}
	}
	if len(fragments) == 0 {
		return nil, ErrEmptyCaptions
	}
	return fragments, nil
}

func (c *InnertubeCaptions) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	ctx = httpclient.WithProvider(ctx, "youtube-innertube")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?prettyPrint=false", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Youtube-Client-Name", "1")
	req.Header.Set("X-Youtube-Client-Version", innertubeWebVersion)
	req.Header.Set("Origin", "https://www.youtube.com")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, &utils.StatusError{Provider: "youtube-innertube", Code: resp.StatusCode, Body: string(snippet)}
	}
	return io.ReadAll(io.LimitReader(resp.Body, 3*1024*1024))
}

// joinFragments flattens fragments into one space-separated string.
func joinFragments(fragments []CaptionFragment) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
