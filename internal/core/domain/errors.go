package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

// ErrorKind is the closed taxonomy of failures surfaced to callers.
type ErrorKind int

const (
	KindUnexpectedError ErrorKind = iota
	KindNetworkError
	KindBadGraphQLRequest
	KindServiceUnavailableWithRetry
	KindServiceUnavailableWithoutRetry

	// KindServiceUnavailable is terminal and only produced by the retry scheduler.
	KindServiceUnavailable
)

// String returns the taxonomy name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNetworkError:
		return "NetworkError"
	case KindBadGraphQLRequest:
		return "BadGraphQLRequest"
	case KindServiceUnavailableWithRetry:
		return "ServiceUnavailableWithRetry"
	case KindServiceUnavailableWithoutRetry:
		return "ServiceUnavailableWithoutRetry"
	case KindServiceUnavailable:
		return "ServiceUnavailable"
	default:
		return "UnexpectedError"
	}
}

// Transient reports whether the kind is eligible for an automatic retry.
func (k ErrorKind) Transient() bool {
	return k == KindNetworkError || k == KindServiceUnavailableWithRetry
}

// ClassifiedError is a taxonomy-conforming error derived from a raw failure.
type ClassifiedError struct {
	Kind    ErrorKind
	Message string

	// Cause is the failure this error was derived from
	Cause error

	// Info holds the protocol error's exception payload, if any
	Info map[string]any
}

// NewClassifiedError creates a ClassifiedError.
func NewClassifiedError(kind ErrorKind, message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	cause := e.Cause.Error()
	if gqlErr, ok := e.Cause.(*gqlerror.Error); ok {
		cause = gqlErr.Message
	}
	if e.Message == "" || strings.Contains(cause, e.Message) {
		return fmt.Sprintf("%s: %s", e.Kind, cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, cause)
}

// Unwrap returns the underlying cause.
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// AsClassified extracts the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the kind of the outermost ClassifiedError in err's chain.
// The boolean is false when err is not classified.
func KindOf(err error) (ErrorKind, bool) {
	ce, ok := AsClassified(err)
	if !ok {
		return KindUnexpectedError, false
	}
	return ce.Kind, true
}
