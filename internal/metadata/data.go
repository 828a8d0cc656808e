package metadata

import (
	"time"
)

// FetchEvent is one completed Send, successful or not.
type FetchEvent struct {
	fetchUrl    string
	strategy    string
	httpStatus  int
	duration    time.Duration
	contentType string
	contentHash string
	attempts    int
}

func NewFetchEvent(
	fetchUrl string,
	strategy string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	contentHash string,
	attempts int,
) FetchEvent {
	return FetchEvent{
		fetchUrl:    fetchUrl,
		strategy:    strategy,
		httpStatus:  httpStatus,
		duration:    duration,
		contentType: contentType,
		contentHash: contentHash,
		attempts:    attempts,
	}
}

func (e FetchEvent) URL() string {
	return e.fetchUrl
}

func (e FetchEvent) Strategy() string {
	return e.strategy
}

func (e FetchEvent) HTTPStatus() int {
	return e.httpStatus
}

func (e FetchEvent) Duration() time.Duration {
	return e.duration
}

func (e FetchEvent) ContentType() string {
	return e.contentType
}

func (e FetchEvent) ContentHash() string {
	return e.contentHash
}

func (e FetchEvent) Attempts() int {
	return e.attempts
}

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry decisions.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.

Examples:
  - Recovered panics
  - Unclassified third-party library failures

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or remote availability.

Examples:
  - TCP timeouts
  - DNS resolution failures
  - Connection resets
  - 5xx responses

# CausePolicyDisallow

Meaning:
  - The remote side refused the request.

Examples:
  - HTTP 401 / 429
  - Rendering service rejecting the API key

# CauseContentInvalid

Meaning:
  - A response arrived but its content could not be used.

Examples:
  - Rendering payload missing browserHtml or httpResponseBody
  - Malformed base64

# CauseRetryFailure

Meaning:
  - Every attempt failed and the retry budget is spent.

# CauseRequestInvalid

Meaning:
  - The request could not be built. No attempt reached the network.

Examples:
  - Unparseable URL
  - JSON body that cannot be encoded
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseRetryFailure
	CauseRequestInvalid
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseRetryFailure:
		return "retry_failure"
	case CauseRequestInvalid:
		return "request_invalid"
	default:
		return "unknown"
	}
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrMethod     AttributeKey = "method"
	AttrStrategy   AttributeKey = "strategy"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrAttempt    AttributeKey = "attempt"
	AttrDelay      AttributeKey = "delay"
	AttrBatchID    AttributeKey = "batch_id"
	AttrErrorKind  AttributeKey = "error_kind"
	AttrMessage    AttributeKey = "message"
)
