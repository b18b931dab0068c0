// Package engine holds the provider-agnostic chat types shared by the
// completion clients and the chat session.
// This file contains error classification and handling.

package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorClass tells a caller whether trying again later might succeed. The
// chat session never retries on its own; the class only shapes what the user
// is told.
type ErrorClass string

const (
	ClassTransient ErrorClass = "transient" // rate limits, 5xx, network hiccups
	ClassPermanent ErrorClass = "permanent" // auth, quota, bad request, refusals
)

// EngineError wraps a provider error with classification metadata.
type EngineError struct {
	Err         error
	Class       ErrorClass
	HTTPStatus  int    // 0 when unknown
	RetryAfter  string // Retry-After header value if present
	IsRateLimit bool
	IsTimeout   bool
	IsNetwork   bool
	IsAuth      bool
	IsQuota     bool
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("engine error: %s", e.Class)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

var transientMarkers = []string{
	"429", "rate limit", "too many requests",
	"500", "502", "503", "504",
	"internal server error", "bad gateway", "service unavailable", "gateway timeout",
	"timeout", "connection reset", "connection refused", "no such host",
	"network", "dns", "temporary failure", "deadline exceeded",
}

// ClassifyLLMError classifies an error from a provider call by its text.
// Unknown errors are permanent.
func ClassifyLLMError(err error) ErrorClass {
	if err == nil {
		return ClassPermanent
	}

	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Class
	}

	errStr := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(errStr, m) {
			return ClassTransient
		}
	}
	return ClassPermanent
}

// WrapLLMError wraps a provider error with classification metadata.
func WrapLLMError(err error, httpStatus int, retryAfter string) error {
	if err == nil {
		return nil
	}

	class := ClassifyLLMError(err)
	if httpStatus == http.StatusTooManyRequests || httpStatus >= 500 {
		class = ClassTransient
	}

	return &EngineError{
		Err:         err,
		Class:       class,
		HTTPStatus:  httpStatus,
		RetryAfter:  retryAfter,
		IsRateLimit: httpStatus == http.StatusTooManyRequests,
		IsTimeout:   httpStatus == http.StatusGatewayTimeout || httpStatus == http.StatusRequestTimeout,
		IsNetwork:   httpStatus == 0 || httpStatus >= 500,
		IsAuth:      httpStatus == http.StatusUnauthorized || httpStatus == http.StatusForbidden,
		IsQuota:     httpStatus == http.StatusPaymentRequired,
	}
}

// ExtractRetryAfter returns the Retry-After hint carried by err, or 0.
func ExtractRetryAfter(err error) time.Duration {
	var engineErr *EngineError
	if !errors.As(err, &engineErr) || engineErr.RetryAfter == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(engineErr.RetryAfter, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, engineErr.RetryAfter); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Describe renders err as a short line for the console.
func Describe(err error) string {
	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		return err.Error()
	}

	switch {
	case engineErr.IsAuth:
		return "authentication failed, check the API key"
	case engineErr.IsQuota:
		return "quota exhausted"
	case engineErr.IsRateLimit:
		if d := ExtractRetryAfter(err); d > 0 {
			return fmt.Sprintf("rate limited, try again in %s", d)
		}
		return "rate limited, try again shortly"
	case engineErr.Class == ClassTransient:
		return "service temporarily unavailable: " + engineErr.Error()
	default:
		return engineErr.Error()
	}
}

// StreamError reports a stream that failed after it started. Partial holds
// whatever text arrived before the failure.
type StreamError struct {
	Err     error
	Partial string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream interrupted after %d bytes: %v", len(e.Partial), e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
