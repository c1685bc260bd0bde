package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Network fault codes.
const (
	CodeConnRefused = "ECONNREFUSED"
	CodeConnReset   = "ECONNRESET"
	CodeTimeout     = "ETIMEDOUT"
	CodeHostUnreach = "EHOSTUNREACH"
	CodeNetUnreach  = "ENETUNREACH"
	CodeEOF         = "EOF"
	CodeNetwork     = "ENETWORK"
)

// NetworkFault is a pure transport failure: the request never produced a
// GraphQL response.
type NetworkFault struct {
	Code string
	Err  error
}

// Error implements the error interface.
func (f *NetworkFault) Error() string {
	return fmt.Sprintf("network fault %s: %v", f.Code, f.Err)
}

// Unwrap returns the underlying error.
func (f *NetworkFault) Unwrap() error {
	return f.Err
}

// ProtocolFault is a non-2xx GraphQL response. Result.Errors holds the
// error list from the response body, which may be empty.
type ProtocolFault struct {
	StatusCode int
	Result     FaultResult
	Body       string
}

// FaultResult is the decoded body of a failed response.
type FaultResult struct {
	Errors gqlerror.List
}

// Error implements the error interface.
func (f *ProtocolFault) Error() string {
	if len(f.Result.Errors) > 0 {
		return fmt.Sprintf("graphql http %d: %s", f.StatusCode, f.Result.Errors[0].Message)
	}
	return fmt.Sprintf("graphql http %d: %s", f.StatusCode, f.Body)
}

// networkCode maps a dial or I/O failure to a fault code. It returns ""
// when err does not look like a network failure.
func networkCode(err error) string {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return CodeConnReset
	case errors.Is(err, syscall.EHOSTUNREACH):
		return CodeHostUnreach
	case errors.Is(err, syscall.ENETUNREACH):
		return CodeNetUnreach
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return CodeEOF
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CodeTimeout
		}
		return CodeNetwork
	}

	return ""
}
