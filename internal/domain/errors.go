package domain

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrStorageUnavailable = errors.New("usage storage unavailable")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUpstream           = errors.New("upstream completion failed")
	ErrProviderNotFound   = errors.New("provider not found")
)

// Error codes written to clients.
const (
	CodeQuotaExceeded        = "quota_exceeded"
	CodeStorageUnavailable   = "storage_unavailable"
	CodeInvalidArgument      = "invalid_argument"
	CodeUpstreamError        = "upstream_error"
	CodeUpstreamTimeout      = "upstream_timeout"
	CodeUpstreamRateLimited  = "upstream_rate_limited"
	CodeUpstreamUnauthorized = "upstream_unauthorized"
	CodeCanceled             = "canceled"
	CodeInternal             = "internal_error"
)

// UpstreamError is a provider-side failure with a caller-facing code.
type UpstreamError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s (status %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream %s: %s", e.Code, e.Message)
}

// Unwrap exposes both ErrUpstream and the cause.
func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}

// NewUpstreamError classifies err as an upstream failure. Context
// cancellation and deadlines get their own codes.
func NewUpstreamError(err error) *UpstreamError {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &UpstreamError{Code: CodeUpstreamTimeout, Message: "upstream request timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &UpstreamError{Code: CodeCanceled, Message: "request canceled", Err: err}
	default:
		return &UpstreamError{Code: CodeUpstreamError, Message: err.Error(), Err: err}
	}
}

// ErrorEvent is the terminal error unit of a chat stream.
type ErrorEvent struct {
	Kind    string `json:"kind"`
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEventFrom maps err to its wire representation.
func ErrorEventFrom(err error) ErrorEvent {
	event := ErrorEvent{Kind: "error", Status: "Fail", Code: CodeInternal, Message: "internal error"}

	var upstreamErr *UpstreamError
	switch {
	case errors.As(err, &upstreamErr):
		event.Code = upstreamErr.Code
		event.Message = upstreamErr.Message
	case errors.Is(err, context.Canceled):
		event.Code = CodeCanceled
		event.Message = "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		event.Code = CodeUpstreamTimeout
		event.Message = "upstream request timed out"
	case errors.Is(err, ErrQuotaExceeded):
		event.Code = CodeQuotaExceeded
		event.Message = "usage quota has been exhausted"
	case errors.Is(err, ErrStorageUnavailable):
		event.Code = CodeStorageUnavailable
		event.Message = "usage storage is unavailable"
	case errors.Is(err, ErrInvalidArgument):
		event.Code = CodeInvalidArgument
		event.Message = err.Error()
	}

	return event
}
