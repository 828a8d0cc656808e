package fetcher

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rohmanhakim/render-fetch/internal/transport"
	"github.com/rohmanhakim/render-fetch/pkg/timeutil"
)

/*
Strategy is the transport path of a Request.

  - Direct sends the request straight to the origin.
  - Rendering asks the Zyte extraction API to fetch it, optionally in a
    headless browser, and rebuilds an origin-looking response from the
    JSON payload.

Each strategy owns its payload shape and its backoff floor. The retry loop
and the terminal-status rule are shared and live in Request.
*/
type Strategy interface {
	Name() string
	Backoff() timeutil.BackoffParam
	Call(r *Request) transport.Call
	// Normalize turns a terminal response into what Send returns.
	Normalize(r *Request, resp *transport.Response) (*transport.Response, error)
}

const (
	StrategyDirect    = "direct"
	StrategyRendering = "rendering"
)

type Direct struct{}

func (Direct) Name() string {
	return StrategyDirect
}

func (Direct) Backoff() timeutil.BackoffParam {
	return DefaultBackoff()
}

func (Direct) Call(r *Request) transport.Call {
	return transport.Call{
		Method:             r.method,
		URL:                r.url,
		Header:             r.header,
		Cookies:            r.cookies,
		Params:             r.params,
		Form:               r.form,
		JSON:               r.json,
		Auth:               r.auth,
		Timeout:            r.timeout,
		FollowRedirects:    r.followRedirects,
		InsecureSkipVerify: !r.verifyTLS,
	}
}

func (Direct) Normalize(_ *Request, resp *transport.Response) (*transport.Response, error) {
	return resp, nil
}

// Rendering fetches through the Zyte extraction API.
type Rendering struct {
	APIKey   string
	Endpoint string
	// Browser requests browserHtml instead of the raw httpResponseBody.
	Browser bool
}

func (Rendering) Name() string {
	return StrategyRendering
}

// Backoff starts from a higher floor than Direct: the service is slower.
func (Rendering) Backoff() timeutil.BackoffParam {
	return DefaultBackoff().WithMinDuration(4 * time.Second)
}

func (s Rendering) Call(r *Request) transport.Call {
	return transport.Call{
		Method:  http.MethodPost,
		URL:     s.Endpoint,
		JSON:    s.payload(r),
		Auth:    &transport.BasicAuth{Username: s.APIKey},
		Timeout: r.timeout,
	}
}

func (s Rendering) payload(r *Request) map[string]any {
	if s.Browser {
		return map[string]any{
			"url":         r.url,
			"browserHtml": true,
		}
	}
	return map[string]any{
		"url":               r.url,
		"httpResponseBody":  true,
		"httpRequestMethod": r.method,
	}
}

type zytePayload struct {
	BrowserHTML      *string `json:"browserHtml"`
	HTTPResponseBody *string `json:"httpResponseBody"`
}

// Normalize extracts the page from the service payload. The result keeps
// the service status code but the target URL and method, so callers see
// the same shape a direct fetch produces.
func (s Rendering) Normalize(r *Request, resp *transport.Response) (*transport.Response, error) {
	extractionErr := func(msg string, err error) error {
		return &FetchError{
			Message:    msg,
			Retryable:  false,
			Cause:      ErrCauseExtraction,
			StatusCode: resp.StatusCode(),
			Err:        err,
		}
	}

	var payload zytePayload
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, extractionErr("rendering response is not JSON", err)
	}

	var body []byte
	if s.Browser {
		if payload.BrowserHTML == nil {
			return nil, extractionErr("rendering response has no browserHtml", nil)
		}
		body = []byte(*payload.BrowserHTML)
	} else {
		if payload.HTTPResponseBody == nil {
			return nil, extractionErr("rendering response has no httpResponseBody", nil)
		}
		decoded, err := base64.StdEncoding.DecodeString(*payload.HTTPResponseBody)
		if err != nil {
			return nil, extractionErr(fmt.Sprintf("httpResponseBody is not base64: %v", err), err)
		}
		body = decoded
	}

	target, err := url.Parse(r.url)
	if err != nil {
		target = nil
	}
	header := http.Header{}
	if s.Browser {
		header.Set("Content-Type", "text/html; charset=utf-8")
	}
	return transport.NewResponse(resp.StatusCode(), r.method, target, header, body), nil
}
