package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/openportal/internal/logging"
	"github.com/aretw0/openportal/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds every request issued by the client.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// Client implements ports.HTTPClient and ports.FileTransfer over net/http.
//
// Concurrent identical GETs share one round trip, keyed by Fingerprint.
// When a cache is configured, 2xx GET bodies are stored under the same key
// so the invalidateCache action can drop them.
type Client struct {
	base        *url.URL
	http        *http.Client
	headers     map[string]string
	cache       ports.ResponseCache
	cacheTTL    time.Duration
	downloadDir string
	logger      *slog.Logger

	group singleflight.Group
}

var (
	_ ports.HTTPClient   = (*Client)(nil)
	_ ports.FileTransfer = (*Client)(nil)
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL resolves relative request URLs against base.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		if base == "" {
			return
		}
		u, err := url.Parse(strings.TrimRight(base, "/") + "/")
		if err != nil {
			c.logger.Warn("ignoring invalid base url", "url", base, "err", err)
			return
		}
		c.base = u
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithCache stores successful GET responses for ttl. A zero ttl never expires.
func WithCache(cache ports.ResponseCache, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithDownloadDir sets where downloaded files are written. Defaults to os.TempDir.
func WithDownloadDir(dir string) ClientOption {
	return func(c *Client) {
		c.downloadDir = dir
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		headers: map[string]string{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fingerprint is the dedupe and cache key of a request: the method, the
// resolved URL and the request headers in sorted order.
func Fingerprint(method, rawURL string, headers map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(' ')
	b.WriteString(rawURL)
	if len(headers) == 0 {
		return b.String()
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", http.CanonicalHeaderKey(k), headers[k])
	}
	return b.String()
}

// Do issues req. Non-2xx responses are returned, not treated as errors.
// Responses shared between deduplicated callers must not be mutated.
func (c *Client) Do(ctx context.Context, req ports.HTTPRequest) (*ports.HTTPResponse, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	target, err := c.resolve(req.URL, req.Query)
	if err != nil {
		return nil, err
	}

	if method != http.MethodGet {
		return c.roundTrip(ctx, method, target, req.Headers, req.Body)
	}

	key := Fingerprint(method, target, req.Headers)
	if resp, ok := c.cached(ctx, key); ok {
		return resp, nil
	}

	// The shared call outlives any single caller; each caller still honours its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		resp, err := c.roundTrip(shared, method, target, req.Headers, nil)
		if err == nil {
			c.store(shared, key, resp)
		}
		return resp, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			c.logger.Debug("deduplicated request", "key", key)
		}
		return r.Val.(*ports.HTTPResponse), nil
	}
}

func (c *Client) cached(ctx context.Context, key string) (*ports.HTTPResponse, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	c.logger.Debug("cache hit", "key", key)
	return &ports.HTTPResponse{StatusCode: http.StatusOK, Header: http.Header{}, Body: decodeBody(data, "")}, true
}

func (c *Client) store(ctx context.Context, key string, resp *ports.HTTPResponse) {
	if c.cache == nil || !resp.OK() {
		return
	}
	data, err := json.Marshal(resp.Body)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
}

func (c *Client) roundTrip(ctx context.Context, method, target string, headers map[string]string, body any) (*ports.HTTPResponse, error) {
	payload, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	hreq.Header.Set("Accept", "application/json")
	c.applyHeaders(hreq, headers)

	start := time.Now()
	hresp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer hresp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(hresp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	c.logger.Debug("request finished", "method", method, "url", target, "status", hresp.StatusCode, "duration", time.Since(start))

	return &ports.HTTPResponse{
		StatusCode: hresp.StatusCode,
		Header:     hresp.Header,
		Body:       decodeBody(data, hresp.Header.Get("Content-Type")),
	}, nil
}

func (c *Client) applyHeaders(hreq *http.Request, headers map[string]string) {
	for k, v := range c.headers {
		hreq.Header.Set(k, v)
	}
	for k, v := range headers {
		hreq.Header.Set(k, v)
	}
}

// resolve joins rawURL to the base URL and appends query values.
func (c *Client) resolve(rawURL string, query map[string]any) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if c.base != nil && !u.IsAbs() {
		u = c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(u.Path, "/"), RawQuery: u.RawQuery})
	}
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			switch vv := v.(type) {
			case nil:
			case []any:
				for _, item := range vv {
					q.Add(k, fmt.Sprint(item))
				}
			default:
				q.Set(k, fmt.Sprint(vv))
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// encodeBody sends strings and bytes as-is and everything else as JSON.
func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(b), "text/plain; charset=utf-8", nil
	case []byte:
		return bytes.NewReader(b), "application/octet-stream", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// decodeBody returns JSON bodies decoded and anything else as a string.
func decodeBody(data []byte, contentType string) any {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if strings.Contains(contentType, "json") || contentType == "" || trimmed[0] == '{' || trimmed[0] == '[' {
		var v any
		if err := json.Unmarshal(trimmed, &v); err == nil {
			return v
		}
	}
	return string(data)
}
