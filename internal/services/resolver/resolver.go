// Package resolver finds the native text of a short-form video: oEmbed
// metadata, platform captions, or captions scraped from the watch page.
package resolver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	apperrors "github.com/socialchef/clipchef/internal/errors"
	"github.com/socialchef/clipchef/internal/httpclient"
	"github.com/socialchef/clipchef/internal/metrics"
	"github.com/socialchef/clipchef/internal/steptrace"
	"github.com/socialchef/clipchef/internal/utils"
)

const (
	oembedLimit    = 256 * 1024
	watchPageLimit = 6 * 1024 * 1024
	timedTextLimit = 3 * 1024 * 1024
)

// Endpoints are the public URLs the resolver talks to. Tests point them at httptest servers.
type Endpoints struct {
	YouTubeOEmbed string
	YouTubeWatch  string
	TikTokOEmbed  string
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		YouTubeOEmbed: "https://www.youtube.com/oembed",
		YouTubeWatch:  "https://www.youtube.com/watch",
		TikTokOEmbed:  "https://www.tiktok.com/oembed",
	}
}

// Resolver retrieves SourceText for a video URL. It holds no per-request state
// and is safe for concurrent use.
type Resolver struct {
	httpClient *http.Client
	captions   CaptionFetcher
	endpoints  Endpoints
	retry      utils.RetryConfig
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCaptionFetcher replaces the default Innertube caption fetcher.
func WithCaptionFetcher(f CaptionFetcher) Option {
	return func(r *Resolver) {
		r.captions = f
	}
}

// WithEndpoints overrides the oEmbed and watch page URLs.
func WithEndpoints(e Endpoints) Option {
	return func(r *Resolver) {
		r.endpoints = e
	}
}

// WithRetryConfig overrides the retry policy of every fetch.
func WithRetryConfig(cfg utils.RetryConfig) Option {
	return func(r *Resolver) {
		r.retry = cfg
	}
}

// New creates a Resolver. A nil client gets an instrumented client with a 20s timeout.
func New(httpClient *http.Client, opts ...Option) *Resolver {
	if httpClient == nil {
		httpClient = httpclient.New(20 * time.Second)
	}
	r := &Resolver{
		httpClient: httpClient,
		endpoints:  DefaultEndpoints(),
		retry:      utils.FetchRetryConfig(httpClient.Timeout),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.captions == nil {
		r.captions = NewInnertubeCaptions(httpClient)
	}
	if r.retry.Timeout <= 0 {
		r.retry.Timeout = 20 * time.Second
	}
	if r.retry.MaxAttempts < 1 {
		r.retry.MaxAttempts = 1
	}
	return r
}

// Resolve classifies rawURL and gathers whatever native text the platform offers.
// Failed sub-fetches are logged and recorded in trace, never returned.
// The only error is ctx's own once it is done.
func (r *Resolver) Resolve(ctx context.Context, rawURL string, trace *steptrace.Trace) (SourceText, error) {
	src := SourceText{Platform: DetectPlatform(rawURL), Origin: OriginNone}
	trace.Step("resolve.platform", string(src.Platform))

	switch src.Platform {
	case PlatformYouTube:
		r.resolveYouTube(ctx, rawURL, &src, trace)
	case PlatformTikTok:
		r.resolveTikTok(ctx, rawURL, &src, trace)
	}

	if err := ctx.Err(); err != nil {
		return src, err
	}
	trace.Add("resolve.done", "", map[string]any{
		"platform":   src.Platform,
		"origin":     src.Origin,
		"textLength": len([]rune(src.Text)),
		"hasTitle":   src.Title != "",
	})
	return src, nil
}

func (r *Resolver) resolveYouTube(ctx context.Context, rawURL string, src *SourceText, trace *steptrace.Trace) {
	videoID := YouTubeVideoID(rawURL)
	if videoID == "" {
		trace.Step("resolve.youtube.no_id", "could not find a video id in the url")
		return
	}
	trace.Step("resolve.youtube.id", videoID)

	if meta, err := r.fetchOEmbed(ctx, r.endpoints.YouTubeOEmbed, "youtube-oembed", rawURL); err != nil {
		r.degrade(ctx, trace, "resolve.oembed.fail", "OEMBED_FAILED", "youtube oembed failed", err)
	} else {
		src.Title, src.Author = meta.Title, meta.AuthorName
		trace.Add("resolve.oembed.ok", "", map[string]any{"title": meta.Title, "author": meta.AuthorName})
	}
	if ctx.Err() != nil {
		return
	}

	fragments, err := r.captions.FetchCaptions(ctx, videoID)
	if err == nil {
		if text := normalizeCaptionText(joinFragments(fragments)); text != "" {
			src.Text, src.Origin = text, OriginCaptions
			metrics.RecordFetch(ctx, "youtube-captions", "ok")
			trace.Add("resolve.captions.ok", "", map[string]any{"fragments": len(fragments), "length": len([]rune(text))})
			return
		}
		err = ErrEmptyCaptions
	}
	metrics.RecordFetch(ctx, "youtube-captions", "error")
	r.degrade(ctx, trace, "resolve.captions.fail", "CAPTIONS_FAILED", "caption fetch failed, trying watch page", err)
	if ctx.Err() != nil {
		return
	}

	text, err := r.scrapeCaptions(ctx, videoID)
	if err != nil {
		r.degrade(ctx, trace, "resolve.scrape.fail", "SCRAPE_FAILED", "watch page caption scrape failed", err)
		return
	}
	src.Text, src.Origin = text, OriginScrape
	trace.Add("resolve.scrape.ok", "", map[string]any{"length": len([]rune(text))})
}

func (r *Resolver) resolveTikTok(ctx context.Context, rawURL string, src *SourceText, trace *steptrace.Trace) {
	meta, err := r.fetchOEmbed(ctx, r.endpoints.TikTokOEmbed, "tiktok-oembed", rawURL)
	if err != nil {
		r.degrade(ctx, trace, "resolve.oembed.fail", "OEMBED_FAILED", "tiktok oembed failed", err)
		return
	}
	src.Title, src.Author = meta.Title, meta.AuthorName
	// TikTok captions are the oEmbed title.
	if meta.Title != "" {
		src.Text, src.Origin = meta.Title, OriginOEmbed
	}
	trace.Add("resolve.oembed.ok", "", map[string]any{"title": meta.Title, "author": meta.AuthorName})
}

// degrade records a failed sub-fetch as a resolution error and carries on.
// The trace message stays the raw cause.
func (r *Resolver) degrade(ctx context.Context, trace *steptrace.Trace, step, code, msg string, err error) {
	resErr := apperrors.NewResolutionError(msg, code, err)
	slog.WarnContext(ctx, resErr.Message, "step", step, "error_code", resErr.Code(), "error", resErr)
	trace.Add(step, err.Error(), map[string]any{"errorCode": resErr.Code()})
}

// get fetches url with retries and returns at most limit bytes of the body.
func (r *Resolver) get(ctx context.Context, provider, url string, limit int64) ([]byte, error) {
	ctx = httpclient.WithProvider(ctx, provider)
	cfg := r.retry
	cfg.OnRetry = func(ctx context.Context, attempt int, err error, delay time.Duration) {
		slog.DebugContext(ctx, "retrying fetch", "provider", provider, "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", err)
		oteltrace.SpanFromContext(ctx).AddEvent("fetch.retry", oteltrace.WithAttributes(
			attribute.String("provider", provider),
			attribute.Int("attempt", attempt),
		))
	}
	body, err := utils.WithRetry(ctx, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, &utils.StatusError{Provider: provider, Code: resp.StatusCode}
		}
		return io.ReadAll(io.LimitReader(resp.Body, limit))
	}, cfg)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordFetch(ctx, provider, status)
	return body, err
}
