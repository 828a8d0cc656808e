package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/render-fetch/internal/metadata"
	"github.com/rohmanhakim/render-fetch/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseTimeout        FetchErrorCause = "timeout"
	ErrCauseNetworkFailure FetchErrorCause = "network issues"
	ErrCauseStatus         FetchErrorCause = "non-terminal status"
	ErrCauseRequestInvalid FetchErrorCause = "invalid request"
	ErrCauseExtraction     FetchErrorCause = "rendering payload extraction failed"
	ErrCauseCanceled       FetchErrorCause = "canceled"
	ErrCauseBodyTooLarge   FetchErrorCause = "response body too large"
)

type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
	// StatusCode is set for ErrCauseStatus and ErrCauseExtraction.
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("fetcher error: %s", e.Cause)
	}
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable returns whether this error is retryable
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout, ErrCauseNetworkFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseStatus:
		switch err.StatusCode {
		case 401, 407, 429:
			return metadata.CausePolicyDisallow
		default:
			return metadata.CauseNetworkFailure
		}
	case ErrCauseExtraction, ErrCauseBodyTooLarge:
		return metadata.CauseContentInvalid
	case ErrCauseRequestInvalid:
		return metadata.CauseRequestInvalid
	default:
		return metadata.CauseUnknown
	}
}
