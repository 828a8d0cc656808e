package failure

type Severity int

// retry and isolation control flow
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

type ClassifiedError interface {
	error
	Severity() Severity
}

// IsRetryable reports whether err asks to be attempted again.
// Errors exposing IsRetryable() decide for themselves; other classified
// errors are retryable when recoverable. Unclassified errors are not retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	type hasRetryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(hasRetryable); ok {
		return r.IsRetryable()
	}
	if c, ok := err.(ClassifiedError); ok {
		return c.Severity() == SeverityRecoverable
	}
	return false
}
