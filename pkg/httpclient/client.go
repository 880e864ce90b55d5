package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	clobErrors "github.com/pooofdevelopment/clob-trader/pkg/errors"
)

const defaultUserAgent = "clob-trader"

// Client wraps the standard HTTP client with pacing, logging and error
// mapping. Response bodies are returned raw; decoding is left to callers.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	userAgent  string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client; nil is ignored
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimiter paces every request through l
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the request logger; nil is ignored
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent sets the User-Agent header of every request
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a new HTTP client
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, rawURL, headers, nil)
}

// Post performs a POST request with a JSON body
func (c *Client) Post(ctx context.Context, rawURL string, headers map[string]string, body []byte) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, rawURL, headers, body)
}

// Delete performs a DELETE request, optionally with a JSON body
func (c *Client) Delete(ctx context.Context, rawURL string, headers map[string]string, body []byte) ([]byte, error) {
	return c.Do(ctx, http.MethodDelete, rawURL, headers, body)
}

// Do sends one request. Non-2xx responses become *errors.ApiError.
func (c *Client) Do(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("http request failed",
			zap.String("method", method),
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("http request",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &clobErrors.ApiError{
			StatusCode: resp.StatusCode,
			Message:    ErrorMessage(payload),
			Body:       string(payload),
			Method:     method,
			Path:       req.URL.Path,
		}
	}

	return payload, nil
}

// ErrorMessage pulls a human readable message out of an error body. Unknown
// shapes fall back to the trimmed body text.
func ErrorMessage(body []byte) string {
	v, err := fastjson.ParseBytes(body)
	if err == nil && v.Type() == fastjson.TypeObject {
		for _, key := range []string{"error", "errorMsg", "message", "msg"} {
			if s := v.GetStringBytes(key); len(s) > 0 {
				return string(s)
			}
		}
	}
	if err == nil && v.Type() == fastjson.TypeString {
		return string(v.GetStringBytes())
	}
	return strings.TrimSpace(string(body))
}

// BuildURL joins host and path and appends the non-empty query values
func BuildURL(host, path string, query url.Values) string {
	u := strings.TrimRight(host, "/") + path
	if enc := query.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}
