package fetcher

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/yourschools/ingest-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	RateLimiters map[string]*rate.Limiter
}

// HTTPFetcher implements Doer using net/http with retry and per-host rate
// limiting. Retries cover the retriable status set (408, 425, 429, 5xx) and
// network-level transient errors; anything else propagates immediately.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*rate.Limiter
	fallback *rate.Limiter
}

// DefaultRateLimiters returns the default per-host rate limiters for the
// state licensing endpoints that throttle aggressively.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"www.dss.virginia.gov":      rate.NewLimiter(5, 5),
		"caresapi.myflfamilies.com": rate.NewLimiter(5, 5),
		"childcare.hhs.texas.gov":   rate.NewLimiter(5, 5),
	}
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 2
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "yourschools-ingest/1.0"
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: limiters,
		fallback: rate.NewLimiter(20, 20),
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return f.fallback
	}
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return f.fallback
}

// Fetch executes the request and returns the UTF-8-decoded body.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	cfg := resilience.RetryConfig{
		MaxRetries: f.opts.MaxRetries,
		Delay:      f.opts.RetryDelay,
		OnRetry:    resilience.RetryLogger("fetcher", req.URL),
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return f.fetchOnce(ctx, req)
	})
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, req Request) ([]byte, error) {
	if err := f.limiterFor(req.URL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s: create request", req.URL)
	}

	httpReq.Header.Set("User-Agent", f.opts.UserAgent)
	httpReq.Header.Set("Accept", "text/csv,application/json,text/html,text/plain,*/*")
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		// Client-level failures (timeouts, resets) are candidates for retry.
		return nil, eris.Wrapf(err, "fetch %s", req.URL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := eris.Errorf("fetch %s: unexpected status %d", req.URL, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			zap.L().Warn("retriable http status",
				zap.String("url", req.URL),
				zap.Int("status", resp.StatusCode),
			)
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s: read body", req.URL)
	}

	return decodeCharset(raw, resp.Header.Get("Content-Type"))
}

// decodeCharset converts a response body to UTF-8 when the Content-Type
// declares a different charset. State licensing portals still serve
// windows-1252 and latin-1 pages.
func decodeCharset(raw []byte, contentType string) ([]byte, error) {
	if contentType == "" {
		return raw, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return raw, nil
	}
	charset := strings.ToLower(params["charset"])
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return raw, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		zap.L().Debug("unknown charset, passing body through", zap.String("charset", charset))
		return raw, nil
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "decode charset %s", charset)
	}
	return decoded, nil
}
