package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	defaultMaxConcurrent  = 5
	defaultRequestTimeout = 10 * time.Second
	defaultMaxRetries     = 3
	defaultRetryDelay     = 1 * time.Second
	defaultCacheTTL       = 5 * time.Minute
)

var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// ErrInvalidUpstream marks responses that could not be interpreted as the
// expected payload, e.g. an HTML error page where JSON was expected.
var ErrInvalidUpstream = errors.New("invalid upstream response")

// StatusError is a non-2xx upstream answer. Body carries the parsed JSON
// error payload when the upstream produced one. Status errors are never
// retried.
type StatusError struct {
	Code int
	Body json.RawMessage
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Code)
}

type Config struct {
	MaxConcurrent  int
	RequestTimeout time.Duration
	// MaxRetries bounds extra attempts after the first request. Zero keeps
	// the default; a negative value disables retries entirely.
	MaxRetries int
	RetryDelay time.Duration
	CacheTTL   time.Duration
	Transport  http.RoundTripper
}

type Options struct {
	Headers map[string]string
}

// Client performs outbound GET requests with a bounded number of concurrent
// calls, per-request timeout, bounded retry and JSON response caching. One
// instance is shared by every connector so the concurrency bound is global.
type Client struct {
	httpClient     *http.Client
	slots          chan struct{}
	cache          *responseCache
	requestTimeout time.Duration
	maxRetries     int
	retryDelay     time.Duration
	cacheTTL       time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	httpClient := &http.Client{}
	if cfg.Transport != nil {
		httpClient.Transport = cfg.Transport
	}

	return &Client{
		httpClient:     httpClient,
		slots:          make(chan struct{}, cfg.MaxConcurrent),
		cache:          newResponseCache(),
		requestTimeout: cfg.RequestTimeout,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
		cacheTTL:       cfg.CacheTTL,
	}
}

// GetJSON fetches url and decodes the JSON body into out. Successful bodies
// are cached for the configured TTL keyed by url plus options; a cache hit
// returns without touching the network or a concurrency slot.
func (c *Client) GetJSON(ctx context.Context, rawURL string, opts Options, out any) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}

	key := cacheKey(rawURL, opts)
	if body, ok := c.cache.get(key); ok {
		return json.Unmarshal(body, out)
	}

	body, err := c.fetch(ctx, rawURL, opts, true)
	if err != nil {
		return err
	}

	c.cache.set(key, body, c.cacheTTL)
	return json.Unmarshal(body, out)
}

// GetHTML fetches url and returns the raw body. Scrape pages are fetched
// fresh on every call; only JSON responses participate in the cache.
// Browser-like headers are applied unless the caller overrides them.
func (c *Client) GetHTML(ctx context.Context, rawURL string, opts Options) (string, error) {
	if err := validateURL(rawURL); err != nil {
		return "", err
	}

	merged := Options{Headers: map[string]string{}}
	for name, value := range browserHeaders {
		merged.Headers[name] = value
	}
	for name, value := range opts.Headers {
		merged.Headers[name] = value
	}

	body, err := c.fetch(ctx, rawURL, merged, false)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ClearCache drops every cached response. Used between test runs.
func (c *Client) ClearCache() {
	c.cache.clear()
}

func (c *Client) fetch(ctx context.Context, rawURL string, opts Options, wantJSON bool) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		body, retryable, err := c.attempt(ctx, rawURL, opts, wantJSON)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, lastErr
}

// attempt acquires one concurrency slot, performs a single GET and releases
// the slot. Each retry re-enters the slot queue so waiters are served FIFO.
func (c *Client) attempt(ctx context.Context, rawURL string, opts Options, wantJSON bool) (body []byte, retryable bool, err error) {
	select {
	case c.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
	defer func() { <-c.slots }()

	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	for name, value := range opts.Headers {
		req.Header.Set(name, value)
	}
	if wantJSON {
		req.Header.Set("Accept", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport failures are the transient class.
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		statusErr := &StatusError{Code: res.StatusCode}
		if isJSONContentType(res.Header.Get("Content-Type")) && json.Valid(raw) {
			statusErr.Body = json.RawMessage(raw)
		}
		return nil, false, statusErr
	}

	if wantJSON {
		if !isJSONContentType(res.Header.Get("Content-Type")) {
			return nil, false, fmt.Errorf("%w: content type %q", ErrInvalidUpstream, res.Header.Get("Content-Type"))
		}
		if !json.Valid(raw) {
			return nil, false, fmt.Errorf("%w: body is not valid json", ErrInvalidUpstream)
		}
	}

	return raw, false, nil
}

func validateURL(rawURL string) error {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return fmt.Errorf("url must be absolute: %q", rawURL)
	}
	return nil
}

func isJSONContentType(contentType string) bool {
	value := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.IndexByte(value, ';'); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value == "application/json" || strings.HasSuffix(value, "+json")
}

func cacheKey(rawURL string, opts Options) string {
	if len(opts.Headers) == 0 {
		return rawURL
	}

	names := make([]string, 0, len(opts.Headers))
	for name := range opts.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var builder strings.Builder
	builder.WriteString(rawURL)
	for _, name := range names {
		builder.WriteByte('|')
		builder.WriteString(name)
		builder.WriteByte('=')
		builder.WriteString(opts.Headers[name])
	}
	return builder.String()
}
