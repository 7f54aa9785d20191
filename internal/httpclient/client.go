package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UserAgent is the browser identity sent to video platforms, which serve
// stripped pages to unknown clients.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

type contextKey struct{}

// WithProvider names the upstream a request goes to. The name becomes the span
// name prefix and the "provider" span attribute.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, contextKey{}, provider)
}

// Provider returns the name set by WithProvider, or "".
func Provider(ctx context.Context) string {
	provider, _ := ctx.Value(contextKey{}).(string)
	return provider
}

type settings struct {
	base    http.RoundTripper
	headers http.Header
}

type Option func(*settings)

// WithTransport replaces http.DefaultTransport as the innermost round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *settings) { s.base = rt }
}

// WithUserAgent overrides the browser User-Agent default.
func WithUserAgent(ua string) Option {
	return func(s *settings) { s.headers.Set("User-Agent", ua) }
}

// New returns a traced client. Requests that do not set User-Agent or
// Accept-Language get the client's defaults.
func New(timeout time.Duration, opts ...Option) *http.Client {
	s := settings{
		base: http.DefaultTransport,
		headers: http.Header{
			"User-Agent":      {UserAgent},
			"Accept-Language": {"en-US,en;q=0.9"},
		},
	}
	for _, opt := range opts {
		opt(&s)
	}

	rt := &defaultsTransport{base: s.base, headers: s.headers}
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(rt, otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			if provider := Provider(r.Context()); provider != "" {
				return provider + " " + r.Method
			}
			return "HTTP " + r.Method
		})),
	}
}

type defaultsTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *defaultsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	span := trace.SpanFromContext(req.Context())
	if provider := Provider(req.Context()); provider != "" {
		span.SetAttributes(attribute.String("provider", provider))
	}

	var missing []string
	for k := range t.headers {
		if req.Header.Get(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		req = req.Clone(req.Context())
		for _, k := range missing {
			req.Header.Set(k, t.headers.Get(k))
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, fmt.Sprintf("upstream returned %d", resp.StatusCode))
	}
	return resp, nil
}
