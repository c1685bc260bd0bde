// Package graphql provides a resilient GraphQL client.
//
// Requests flow through a chain of stages:
//
//	retry scheduler → error classifier → HTTP transport
//
// The transport reports raw failures (network faults, protocol error
// bundles). The classifier turns every failure into a single
// ClassifiedError, and the scheduler re-invokes the chain after transient
// failures with an exponential backoff.
//
// # Quick Start
//
//	import "github.com/vietddude/gqlclient/internal/infra/graphql"
//
//	tr := graphql.NewHTTPTransport(endpoint, 30*time.Second)
//	client := graphql.NewClient(graphql.NewChain(tr, graphql.DefaultRetryConfig()))
//
//	data, err := client.Query(ctx, graphql.Request{Query: `query Me { me { id } }`}, "")
//	if kind, ok := graphql.KindOf(err); ok && kind == graphql.KindServiceUnavailable {
//	    // give up
//	}
//
// # Package Structure
//
//   - link/      - Stage contract, Call handle, chain composition
//   - transport/ - HTTP transport, raw fault shapes, transport stats
//   - classify/  - Error classifier
//   - retry/     - Retry scheduler and backoff configuration
//
// Most types are re-exported at the root level for convenience.
package graphql

import (
	"time"

	"github.com/vietddude/gqlclient/internal/core/domain"
	"github.com/vietddude/gqlclient/internal/infra/graphql/classify"
	"github.com/vietddude/gqlclient/internal/infra/graphql/link"
	"github.com/vietddude/gqlclient/internal/infra/graphql/retry"
	"github.com/vietddude/gqlclient/internal/infra/graphql/transport"
)

// =============================================================================
// Re-exported types
// =============================================================================

// Stage is one step of the request pipeline.
type Stage = link.Stage

// Call is a handle on an in-flight invocation.
type Call = link.Call

// Operation is one query or mutation request.
type Operation = domain.Operation

// Result is the data/errors pair produced for an Operation.
type Result = domain.Result

// ClassifiedError is the normalized error shape seen by callers.
type ClassifiedError = domain.ClassifiedError

// ErrorKind is the category of a ClassifiedError.
type ErrorKind = domain.ErrorKind

// RetryConfig defines retry behavior.
type RetryConfig = retry.Config

// HTTPTransport sends operations to a GraphQL endpoint over HTTP.
type HTTPTransport = transport.HTTPTransport

// Error kinds.
const (
	KindUnexpectedError                = domain.KindUnexpectedError
	KindNetworkError                   = domain.KindNetworkError
	KindBadGraphQLRequest              = domain.KindBadGraphQLRequest
	KindServiceUnavailableWithRetry    = domain.KindServiceUnavailableWithRetry
	KindServiceUnavailableWithoutRetry = domain.KindServiceUnavailableWithoutRetry
	KindServiceUnavailable             = domain.KindServiceUnavailable
)

// ErrCanceled is the outcome of a cancelled Call.
var ErrCanceled = link.ErrCanceled

// =============================================================================
// Constructors
// =============================================================================

// DefaultRetryConfig returns the standard retry budget.
func DefaultRetryConfig() RetryConfig {
	return retry.DefaultConfig()
}

// NewHTTPTransport creates an HTTP transport for endpoint.
func NewHTTPTransport(endpoint string, timeout time.Duration, opts ...transport.Option) *HTTPTransport {
	return transport.NewHTTPTransport(endpoint, timeout, opts...)
}

// NewChain composes the standard pipeline on top of terminal:
// retry scheduler, then error classifier, then terminal.
func NewChain(terminal Stage, cfg RetryConfig, opts ...retry.Option) Stage {
	return link.Chain(terminal,
		retry.Middleware(cfg, opts...),
		classify.Middleware(),
	)
}

// KindOf returns the kind of the outermost ClassifiedError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	return domain.KindOf(err)
}
