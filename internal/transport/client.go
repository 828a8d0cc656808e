package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/render-fetch/internal/build"
	"github.com/rohmanhakim/render-fetch/pkg/urlutil"
	"golang.org/x/time/rate"
)

/*
Responsibilities

- Own the connection pools shared by every fetch
- Build requests from a Call (query params, cookies, auth, body)
- Apply browser-like default headers and per-call timeouts
- Read and decode bodies

The client never decides whether a status is a failure; callers do that
through Response.RaiseForStatus.
*/

const (
	DefaultTimeout      = 60 * time.Second
	DefaultMaxRedirects = 10
	// rendering payloads carry the page base64-encoded, a third larger
	DefaultMaxBodyBytes = 128 << 20
)

// Client is safe for concurrent use. All calls share two pools: one that
// verifies TLS certificates and one that does not.
type Client struct {
	userAgent    string
	maxRedirects int
	maxBodyBytes int64
	limiter      *rate.Limiter
	fingerprint  bool

	verifying *http.Transport
	insecure  *http.Transport
}

type Option func(*Client)

// WithUserAgent sets the default User-Agent; a Call header still wins.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRateLimit caps outgoing requests across all callers. Each attempt,
// retries included, waits for a token. rps <= 0 disables the cap.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBrowserFingerprint makes TLS handshakes look like Chrome's.
// Connections are then limited to HTTP/1.1.
func WithBrowserFingerprint(enabled bool) Option {
	return func(c *Client) {
		c.fingerprint = enabled
	}
}

// WithMaxBodyBytes bounds response bodies, before and after decoding.
// Larger bodies fail with ErrBodyTooLarge. n <= 0 keeps the default.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRedirects = n
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		userAgent:    build.UserAgent(),
		maxRedirects: DefaultMaxRedirects,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.verifying = c.newPool(false)
	c.insecure = c.newPool(true)
	return c
}

func (c *Client) newPool(insecureSkipVerify bool) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 16
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: insecureSkipVerify}
	if c.fingerprint {
		t.DialTLSContext = dialChromeTLS(insecureSkipVerify)
		t.ForceAttemptHTTP2 = false
	}
	return t
}

// Close releases idle connections of both pools.
func (c *Client) Close() {
	c.verifying.CloseIdleConnections()
	c.insecure.CloseIdleConnections()
}

// Do performs one HTTP exchange. Any status code is returned as a Response;
// errors are reserved for calls that could not be built, sent or read.
// Build failures wrap ErrInvalidCall.
func (c *Client) Do(ctx context.Context, call Call) (*Response, error) {
	req, cancel, err := c.newRequest(ctx, call)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("transport: rate limit wait: %w", err)
		}
	}

	httpClient := c.httpClient(call)
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %s %s: %w", req.Method, call.URL, err)
	}
	defer resp.Body.Close()

	raw, err := readLimited(resp.Body, c.maxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("transport: read body of %s: %w", call.URL, err)
	}

	header := resp.Header.Clone()
	body, err := decodeBody(raw, header.Get("Content-Encoding"), c.maxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("transport: decode body: %w", err)
	}
	if header.Get("Content-Encoding") != "" {
		header.Del("Content-Encoding")
		header.Del("Content-Length")
	}

	effective := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		effective = resp.Request.URL
	}

	return &Response{
		statusCode: resp.StatusCode,
		status:     resp.Status,
		method:     req.Method,
		url:        effective,
		header:     header,
		body:       body,
	}, nil
}

func (c *Client) httpClient(call Call) *http.Client {
	pool := c.verifying
	if call.InsecureSkipVerify {
		pool = c.insecure
	}

	maxRedirects := c.maxRedirects
	return &http.Client{
		Transport: pool,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !call.FollowRedirects {
				return http.ErrUseLastResponse
			}
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

func (c *Client) newRequest(ctx context.Context, call Call) (*http.Request, context.CancelFunc, error) {
	method := strings.ToUpper(strings.TrimSpace(call.Method))
	if method == "" {
		method = http.MethodGet
	}

	target, err := url.Parse(call.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parse url %q: %v", ErrInvalidCall, call.URL, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, nil, fmt.Errorf("%w: url %q must use http or https", ErrInvalidCall, call.URL)
	}
	merged := urlutil.MergeQuery(*target, call.Params)

	body, contentType, err := encodeBody(call)
	if err != nil {
		return nil, nil, err
	}

	timeout := call.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(reqCtx, method, merged.String(), body)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCall, err)
	}

	for key, value := range defaultHeaders(c.userAgent) {
		req.Header.Set(key, value)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, values := range call.Header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for name, value := range call.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if call.Auth != nil {
		req.SetBasicAuth(call.Auth.Username, call.Auth.Password)
	}

	return req, cancel, nil
}

func encodeBody(call Call) (io.Reader, string, error) {
	switch {
	case call.JSON != nil:
		payload, err := json.Marshal(call.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("%w: encode json body: %v", ErrInvalidCall, err)
		}
		return bytes.NewReader(payload), "application/json", nil
	case call.Form != nil:
		return strings.NewReader(call.Form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return nil, "", nil
	}
}

// IsTimeout reports whether err came from a deadline, either the per-call
// timeout or the caller's context.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
