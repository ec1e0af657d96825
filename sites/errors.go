package sites

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"gazo/challenge"
	"gazo/downloader"
)

const (
	ErrorTypeConfig      = "config"
	ErrorTypeNetwork     = "network"
	ErrorTypeTimeout     = "timeout"
	ErrorTypeRateLimit   = "rate_limit"
	ErrorTypeUpstream5xx = "upstream_5xx"
	ErrorTypeBlocked     = "blocked"
	ErrorTypeUnknown     = "unknown"
)

// TypedError tags an engine failure with a coarse category the UI can explain
type TypedError struct {
	Type string
	Err  error
}

func (e *TypedError) Error() string {
	if e == nil {
		return "unknown error"
	}
	if e.Err == nil {
		return e.Type
	}
	return e.Err.Error()
}

func (e *TypedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NonRetryable tells SearchImages not to try again: a missing key or a block page
// will not fix itself between attempts
func (e *TypedError) NonRetryable() bool {
	return e != nil && (e.Type == ErrorTypeConfig || e.Type == ErrorTypeBlocked)
}

func NewTypedError(errorType string, err error) error {
	if err == nil {
		return &TypedError{Type: errorType, Err: errors.New(errorType)}
	}
	return &TypedError{Type: errorType, Err: err}
}

// ClassifyError maps any engine error onto one of the ErrorType constants
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	var typed *TypedError
	if errors.As(err, &typed) && strings.TrimSpace(typed.Type) != "" {
		return typed.Type
	}
	if chErr, ok := challenge.IsChallenge(err); ok {
		if chErr.Kind == challenge.KindRateLimit {
			return ErrorTypeRateLimit
		}
		return ErrorTypeBlocked
	}

	var statusErr *downloader.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return ErrorTypeRateLimit
		case statusErr.StatusCode >= 500:
			return ErrorTypeUpstream5xx
		case statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden:
			return ErrorTypeConfig
		}
		return ErrorTypeUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	if strings.Contains(msg, "timeout") {
		return ErrorTypeTimeout
	}
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "connection reset") {
		return ErrorTypeNetwork
	}
	if strings.Contains(msg, "429") {
		return ErrorTypeRateLimit
	}
	return ErrorTypeUnknown
}

// wrapError classifies err unless it is already typed. Context cancellation is
// passed through untouched.
func wrapError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	var typed *TypedError
	if errors.As(err, &typed) {
		return err
	}
	return &TypedError{Type: ClassifyError(err), Err: err}
}

// Explain turns an engine error into a short message for the error dialog
func Explain(err error) string {
	switch ClassifyError(err) {
	case ErrorTypeConfig:
		return "The search engine is not configured correctly: " + err.Error()
	case ErrorTypeNetwork:
		return "Could not reach the search engine. Check your connection."
	case ErrorTypeTimeout:
		return "The search engine took too long to answer."
	case ErrorTypeRateLimit:
		return "The search engine is rate limiting requests. Wait a moment and try again."
	case ErrorTypeUpstream5xx:
		return "The search engine returned a server error. Try again later."
	case ErrorTypeBlocked:
		return "The search engine served a verification page instead of results."
	}
	return err.Error()
}
