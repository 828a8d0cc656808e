package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rohmanhakim/render-fetch/internal/metadata"
	"github.com/rohmanhakim/render-fetch/internal/transport"
	"github.com/rohmanhakim/render-fetch/pkg/timeutil"
)

// HTTP boundary

// Transport performs one HTTP exchange. *transport.Client satisfies it.
type Transport interface {
	Do(ctx context.Context, call transport.Call) (*transport.Response, error)
}

const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxAttempts = 3
	ZyteEndpoint       = "https://api.zyte.com/v1/extract"
)

// DefaultBackoff is the shared backoff curve; each strategy raises the floor.
func DefaultBackoff() timeutil.BackoffParam {
	return timeutil.NewBackoffParam(time.Second, 3*time.Second, 10*time.Second)
}

// Request is one fetch intent. The strategy (direct or rendering) is chosen
// by NewRequest and never changes afterwards.
type Request struct {
	url             string
	method          string
	header          http.Header
	cookies         map[string]string
	params          url.Values
	form            url.Values
	json            any
	auth            *transport.BasicAuth
	verifyTLS       bool
	timeout         time.Duration
	followRedirects bool

	rendering bool
	apiKey    string
	browser   bool
	endpoint  string

	terminalStatuses map[int]struct{}
	maxAttempts      int
	randomSeed       int64
	backoff          *timeutil.BackoffParam
	directBackoff    *timeutil.BackoffParam
	renderingBackoff *timeutil.BackoffParam

	transport    Transport
	strategy     Strategy
	metadataSink metadata.MetadataSink
}

type Option func(*Request)

func WithMethod(method string) Option {
	return func(r *Request) {
		r.method = method
	}
}

func WithHeaders(header http.Header) Option {
	return func(r *Request) {
		r.header = header.Clone()
	}
}

func WithCookies(cookies map[string]string) Option {
	return func(r *Request) {
		r.cookies = cookies
	}
}

func WithParams(params url.Values) Option {
	return func(r *Request) {
		r.params = params
	}
}

// WithForm sends values form-encoded. WithJSON takes precedence when both are set.
func WithForm(form url.Values) Option {
	return func(r *Request) {
		r.form = form
	}
}

func WithJSON(body any) Option {
	return func(r *Request) {
		r.json = body
	}
}

func WithBasicAuth(username, password string) Option {
	return func(r *Request) {
		r.auth = &transport.BasicAuth{Username: username, Password: password}
	}
}

func WithVerifyTLS(verify bool) Option {
	return func(r *Request) {
		r.verifyTLS = verify
	}
}

// WithTimeout bounds each attempt, not the whole retry loop.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Request) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

func WithFollowRedirects(follow bool) Option {
	return func(r *Request) {
		r.followRedirects = follow
	}
}

// WithRendering routes the request through the Zyte extraction API.
// An empty apiKey is not rejected here; the service answers 401 at send time.
func WithRendering(apiKey string) Option {
	return func(r *Request) {
		r.rendering = true
		r.apiKey = apiKey
	}
}

// WithBrowser asks the rendering service for browser-rendered HTML.
// It has no effect without WithRendering.
func WithBrowser() Option {
	return func(r *Request) {
		r.browser = true
	}
}

func WithRenderingEndpoint(endpoint string) Option {
	return func(r *Request) {
		if endpoint != "" {
			r.endpoint = endpoint
		}
	}
}

// WithTerminalStatuses adds status codes that end the retry loop as
// successes, on top of 2xx and 403.
func WithTerminalStatuses(codes ...int) Option {
	return func(r *Request) {
		for _, code := range codes {
			r.terminalStatuses[code] = struct{}{}
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(r *Request) {
		r.maxAttempts = n
	}
}

// WithBackoff replaces the strategy's backoff curve.
func WithBackoff(param timeutil.BackoffParam) Option {
	return func(r *Request) {
		r.backoff = &param
	}
}

// WithBackoffs sets one curve per strategy. The one matching the chosen
// strategy is used; WithBackoff still takes precedence.
func WithBackoffs(direct, rendering timeutil.BackoffParam) Option {
	return func(r *Request) {
		r.directBackoff = &direct
		r.renderingBackoff = &rendering
	}
}

// WithRandomSeed makes backoff jitter reproducible. Zero seeds from the clock.
func WithRandomSeed(seed int64) Option {
	return func(r *Request) {
		r.randomSeed = seed
	}
}

func WithMetadataSink(sink metadata.MetadataSink) Option {
	return func(r *Request) {
		if sink != nil {
			r.metadataSink = sink
		}
	}
}

func (r *Request) URL() string {
	return r.url
}

func (r *Request) Method() string {
	return r.method
}

func (r *Request) Timeout() time.Duration {
	return r.timeout
}

func (r *Request) Strategy() Strategy {
	return r.strategy
}
