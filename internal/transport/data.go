package transport

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// BasicAuth is a username/secret pair sent as an Authorization: Basic header.
type BasicAuth struct {
	Username string
	Password string
}

// Call describes one HTTP exchange. Zero values mean "not set", except
// FollowRedirects, which callers must opt into explicitly.
type Call struct {
	Method  string
	URL     string
	Header  http.Header
	Cookies map[string]string
	// Params are appended to the URL query.
	Params url.Values
	// Form is sent form-encoded. Ignored when JSON is set.
	Form url.Values
	// JSON is marshaled as the request body.
	JSON               any
	Auth               *BasicAuth
	Timeout            time.Duration
	FollowRedirects    bool
	InsecureSkipVerify bool
}

// Response is a fully read HTTP response. The body is already decoded
// according to Content-Encoding.
type Response struct {
	statusCode int
	status     string
	method     string
	url        *url.URL
	header     http.Header
	body       []byte
}

// NewResponse builds a Response that did not come off the wire, e.g. one
// synthesized from a rendering service payload.
func NewResponse(statusCode int, method string, u *url.URL, header http.Header, body []byte) *Response {
	if header == nil {
		header = http.Header{}
	}
	var copied *url.URL
	if u != nil {
		c := *u
		copied = &c
	}
	return &Response{
		statusCode: statusCode,
		status:     statusLine(statusCode),
		method:     method,
		url:        copied,
		header:     header,
		body:       body,
	}
}

func (r *Response) StatusCode() int {
	return r.statusCode
}

func (r *Response) Status() string {
	return r.status
}

func (r *Response) Method() string {
	return r.method
}

// URL is the effective URL of the response, after redirects.
// The returned value is a copy.
func (r *Response) URL() *url.URL {
	if r.url == nil {
		return nil
	}
	c := *r.url
	return &c
}

func (r *Response) Header() http.Header {
	return r.header.Clone()
}

// Body returns the decoded body. Callers must not modify it.
func (r *Response) Body() []byte {
	return r.body
}

func (r *Response) Text() string {
	return string(r.body)
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.body, v)
}

// RaiseForStatus returns a *StatusError for 4xx and 5xx responses and nil otherwise.
func (r *Response) RaiseForStatus() error {
	if r.statusCode >= 400 {
		return &StatusError{
			StatusCode: r.statusCode,
			Method:     r.method,
			URL:        r.urlString(),
		}
	}
	return nil
}

func (r *Response) urlString() string {
	if r.url == nil {
		return ""
	}
	return r.url.String()
}

func statusLine(code int) string {
	return strings.TrimSpace(strconv.Itoa(code) + " " + http.StatusText(code))
}
