package envelope

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rohmanhakim/render-fetch/internal/transport"
	"github.com/rohmanhakim/render-fetch/pkg/urlutil"
	"github.com/tidwall/gjson"
)

/*
Envelope Semantics

- An envelope either wraps a response or records why there is none
- IsSuccess depends only on the presence of a response, never on its
  status code: a received 403 is a success here
- Every accessor is total. On a missing response it returns an empty
  value (empty string, empty map, empty selection) instead of failing
- Envelopes are immutable; accessors have no side effects
*/

// FailureKind tells why an envelope carries no response.
type FailureKind string

const (
	KindNone FailureKind = ""
	// KindTransport covers statuses, network failures, timeouts and
	// exhausted retries.
	KindTransport FailureKind = "transport"
	// KindContent is a response that arrived but could not be used,
	// e.g. a rendering payload missing its page.
	KindContent FailureKind = "content"
	// KindUnexpected is anything else, including recovered panics.
	KindUnexpected FailureKind = "unexpected"
)

// notAllowedDomains are social networks whose pages are login walls
// rather than content.
var notAllowedDomains = []string{
	"facebook.com",
	"twitter.com",
	"linkedin.com",
	"instagram.com",
	"tiktok.com",
	"youtube.com",
}

type Envelope struct {
	response *transport.Response
	err      error
	kind     FailureKind
}

// New wraps a received response. A nil response yields a failed envelope
// of KindUnexpected.
func New(response *transport.Response) Envelope {
	if response == nil {
		return Envelope{kind: KindUnexpected}
	}
	return Envelope{response: response}
}

// Failed builds an envelope for a fetch that produced no response.
func Failed(err error, kind FailureKind) Envelope {
	if kind == KindNone {
		kind = KindUnexpected
	}
	return Envelope{err: err, kind: kind}
}

// IsSuccess reports whether a response is present, whatever its status.
func (e Envelope) IsSuccess() bool {
	return e.response != nil
}

// Response returns the wrapped response, or nil.
func (e Envelope) Response() *transport.Response {
	return e.response
}

// Err is the terminal error of a failed fetch, nil on success.
func (e Envelope) Err() error {
	return e.err
}

func (e Envelope) Kind() FailureKind {
	return e.kind
}

// StatusCode is 0 when there is no response.
func (e Envelope) StatusCode() int {
	if e.response == nil {
		return 0
	}
	return e.response.StatusCode()
}

// URL is the resolved URL of the response, or nil.
func (e Envelope) URL() *url.URL {
	if e.response == nil {
		return nil
	}
	return e.response.URL()
}

func (e Envelope) Text() string {
	if e.response == nil {
		return ""
	}
	return e.response.Text()
}

// JSON decodes the body as a JSON object. Missing responses, invalid JSON
// and non-object documents all yield an empty, non-nil map.
func (e Envelope) JSON() map[string]any {
	out := map[string]any{}
	if e.response == nil {
		return out
	}
	var decoded map[string]any
	if err := json.Unmarshal(e.response.Body(), &decoded); err != nil || decoded == nil {
		return out
	}
	return decoded
}

// Get looks up a gjson path in the body, e.g. "items.0.name".
// The zero gjson.Result (Exists() == false) is returned on a missing response.
func (e Envelope) Get(path string) gjson.Result {
	if e.response == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(e.response.Body(), path)
}

// Disallowed reports whether the resolved URL is on a social network
// domain whose pages should not be treated as content.
func (e Envelope) Disallowed() bool {
	u := e.URL()
	if u == nil {
		return false
	}
	for _, domain := range notAllowedDomains {
		if urlutil.HostMatchesDomain(u.Hostname(), domain) {
			return true
		}
	}
	return false
}

func (e Envelope) String() string {
	if e.response == nil {
		if e.err != nil {
			return fmt.Sprintf("Envelope(%s: %v)", e.kind, e.err)
		}
		return fmt.Sprintf("Envelope(%s)", e.kind)
	}
	return fmt.Sprintf("Envelope(%d %s)", e.response.StatusCode(), e.URL())
}
