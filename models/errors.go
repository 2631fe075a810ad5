package models

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindUnsupportedImageForm ErrorKind = "UnsupportedImageForm"
	KindProviderError        ErrorKind = "ProviderError"
	KindNoImageProduced      ErrorKind = "NoImageProduced"
	KindExhaustedFallback    ErrorKind = "ExhaustedFallback"
	KindAdvisoryParseFailure ErrorKind = "AdvisoryParseFailure"
	KindInvalidRequest       ErrorKind = "InvalidRequest"
)

var (
	ErrUnsupportedImageForm = errors.New("unsupported image form")
	ErrNoImageProduced      = errors.New("provider returned no image")
	ErrAdvisoryParseFailure = errors.New("could not parse style advice")
	ErrInvalidRequest       = errors.New("invalid try-on request")
)

// ProviderError is a single adapter call failure.
type ProviderError struct {
	ProviderID       string
	Model            string
	RawMessage       string
	PermissionDenied bool
	Cause            error
}

func (e *ProviderError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s/%s: %s", e.ProviderID, e.Model, e.RawMessage)
	}
	return fmt.Sprintf("%s: %s", e.ProviderID, e.RawMessage)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

func NewProviderError(providerID, model string, cause error) *ProviderError {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return &ProviderError{ProviderID: providerID, Model: model, RawMessage: msg, Cause: cause}
}

// KindOf classifies err. Unknown errors count as provider errors.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedImageForm):
		return KindUnsupportedImageForm
	case errors.Is(err, ErrNoImageProduced):
		return KindNoImageProduced
	case errors.Is(err, ErrAdvisoryParseFailure):
		return KindAdvisoryParseFailure
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	}
	return KindProviderError
}

// IsPermissionDenied reports whether err came from a rejected key or missing access.
func IsPermissionDenied(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.PermissionDenied
	}
	return false
}
