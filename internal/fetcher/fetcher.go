package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/render-fetch/internal/metadata"
	"github.com/rohmanhakim/render-fetch/internal/transport"
	"github.com/rohmanhakim/render-fetch/pkg/hashutil"
	"github.com/rohmanhakim/render-fetch/pkg/retry"
)

/*
Responsibilities

- Pick the transport path once, at construction
- Drive the retry loop around that path
- Decide which statuses end the loop
- Normalize rendering payloads into plain responses
- Record every send with metadata

Fetch Semantics

- 2xx and 403 are terminal successes; 403 is returned so callers can
  inspect block pages
- Every other status is retried, 404 and 500 alike
- Network failures and per-attempt timeouts are retried
- Invalid requests, cancellation, oversized bodies and rendering
  extraction failures stop the loop immediately

The fetcher never parses page content.
*/

// NewRequest builds a Request for rawURL. Defaults: GET, 60s per-attempt
// timeout, redirects followed, TLS verified, direct strategy, 3 attempts.
func NewRequest(t Transport, rawURL string, opts ...Option) *Request {
	r := &Request{
		url:              rawURL,
		method:           http.MethodGet,
		verifyTLS:        true,
		timeout:          DefaultTimeout,
		followRedirects:  true,
		endpoint:         ZyteEndpoint,
		terminalStatuses: map[int]struct{}{http.StatusForbidden: {}},
		maxAttempts:      DefaultMaxAttempts,
		transport:        t,
		metadataSink:     &metadata.NoopSink{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.method = strings.ToUpper(r.method)

	if r.rendering {
		r.strategy = Rendering{
			APIKey:   r.apiKey,
			Endpoint: r.endpoint,
			Browser:  r.browser,
		}
	} else {
		r.strategy = Direct{}
	}
	return r
}

func (r *Request) retryParam() retry.RetryParam {
	backoff := r.strategy.Backoff()
	switch {
	case r.backoff != nil:
		backoff = *r.backoff
	case r.rendering && r.renderingBackoff != nil:
		backoff = *r.renderingBackoff
	case !r.rendering && r.directBackoff != nil:
		backoff = *r.directBackoff
	}
	param := retry.NewRetryParam(r.maxAttempts, r.randomSeed, backoff)
	param.OnRetry = r.recordRetry
	return param
}

// Send runs the full retry loop and returns the final response, or the
// terminal error. After exhausted attempts the error is a *retry.RetryError
// that unwraps to the last *FetchError.
func (r *Request) Send(ctx context.Context) (*transport.Response, error) {
	return r.Do(ctx).Unwrap()
}

// Do is Send returning a retry.Result, which also carries the attempt count.
// Each call starts a fresh retry loop.
func (r *Request) Do(ctx context.Context) retry.Result[*transport.Response] {
	callerMethod := "Request.Send"
	startTime := time.Now()

	result := retry.Retry(ctx, r.retryParam(), func(ctx context.Context, attempt int) (*transport.Response, error) {
		return r.attempt(ctx)
	})

	duration := time.Since(startTime)

	var statusCode int
	var contentType string
	var contentHash string
	if resp := result.Value(); resp != nil {
		statusCode = resp.StatusCode()
		contentType = resp.Header().Get("Content-Type")
		contentHash = hashutil.Fingerprint(resp.Body())
	} else {
		var fetchErr *FetchError
		if errors.As(result.Err(), &fetchErr) {
			statusCode = fetchErr.StatusCode
		}
	}

	r.metadataSink.RecordFetch(metadata.NewFetchEvent(
		r.url,
		r.strategy.Name(),
		statusCode,
		duration,
		contentType,
		contentHash,
		result.Attempts(),
	))

	if err := result.Err(); err != nil {
		r.recordError(callerMethod, err)
	}

	return result
}

func (r *Request) attempt(ctx context.Context) (*transport.Response, error) {
	call := r.strategy.Call(r)
	resp, err := r.transport.Do(ctx, call)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	if !r.isTerminal(resp.StatusCode()) {
		statusErr := resp.RaiseForStatus()
		if statusErr == nil {
			statusErr = &transport.StatusError{
				StatusCode: resp.StatusCode(),
				Method:     resp.Method(),
				URL:        call.URL,
			}
		}
		return nil, &FetchError{
			Message:    fmt.Sprintf("status %d", resp.StatusCode()),
			Retryable:  true,
			Cause:      ErrCauseStatus,
			StatusCode: resp.StatusCode(),
			Err:        statusErr,
		}
	}

	return r.strategy.Normalize(r, resp)
}

func (r *Request) isTerminal(statusCode int) bool {
	if statusCode >= 200 && statusCode < 300 {
		return true
	}
	_, ok := r.terminalStatuses[statusCode]
	return ok
}

func classifyTransportError(ctx context.Context, err error) *FetchError {
	switch {
	case errors.Is(err, transport.ErrInvalidCall):
		return &FetchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseRequestInvalid,
			Err:       err,
		}
	case errors.Is(err, transport.ErrBodyTooLarge):
		return &FetchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseBodyTooLarge,
			Err:       err,
		}
	case ctx.Err() != nil:
		// the caller gave up; the per-attempt timeout alone does not land here
		return &FetchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseCanceled,
			Err:       err,
		}
	case transport.IsTimeout(err):
		return &FetchError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseTimeout,
			Err:       err,
		}
	default:
		return &FetchError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
			Err:       err,
		}
	}
}

func (r *Request) recordRetry(attempt int, err error, delay time.Duration) {
	cause := metadata.CauseUnknown
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		cause = mapFetchErrorToMetadataCause(fetchErr)
	}
	attrs := append(r.errorAttrs(err),
		metadata.NewAttr(metadata.AttrAttempt, strconv.Itoa(attempt)),
		metadata.NewAttr(metadata.AttrDelay, delay.String()),
	)
	r.metadataSink.RecordError(time.Now(), "fetcher", "Request.retry", cause, err.Error(), attrs)
}

func (r *Request) recordError(callerMethod string, err error) {
	attrs := r.errorAttrs(err)

	// RetryError wraps the last FetchError, so it is checked first
	var retryErr *retry.RetryError
	if errors.As(err, &retryErr) {
		r.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			callerMethod,
			metadata.CauseRetryFailure,
			err.Error(),
			append(attrs, metadata.NewAttr(metadata.AttrMessage, string(retryErr.Cause))),
		)
		return
	}

	cause := metadata.CauseUnknown
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		cause = mapFetchErrorToMetadataCause(fetchErr)
	}
	r.metadataSink.RecordError(time.Now(), "fetcher", callerMethod, cause, err.Error(), attrs)
}

// errorAttrs describes the request, plus the status of err when one was
// received.
func (r *Request) errorAttrs(err error) []metadata.Attribute {
	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, r.url),
		metadata.NewAttr(metadata.AttrMethod, r.method),
		metadata.NewAttr(metadata.AttrStrategy, r.strategy.Name()),
	}
	if u, parseErr := url.Parse(r.url); parseErr == nil && u.Host != "" {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrHost, u.Hostname()))
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrHTTPStatus, strconv.Itoa(fetchErr.StatusCode)))
	}
	return attrs
}
