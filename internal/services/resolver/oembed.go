package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// fetchOEmbed reads title and author from an oEmbed endpoint.
func (r *Resolver) fetchOEmbed(ctx context.Context, endpoint, provider, videoURL string) (oembedResponse, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return oembedResponse{}, fmt.Errorf("%s: bad endpoint: %w", provider, err)
	}
	q := u.Query()
	q.Set("url", videoURL)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	body, err := r.get(ctx, provider, u.String(), oembedLimit)
	if err != nil {
		return oembedResponse{}, err
	}

	var meta oembedResponse
	if err := json.Unmarshal(body, &meta); err != nil {
		return oembedResponse{}, fmt.Errorf("%s: decode: %w", provider, err)
	}
	return meta, nil
}
