// Package classify turns raw transport and protocol failures into the
// domain error taxonomy.
//
// The classifier is a pipeline stage. Every failure produced downstream,
// whether the downstream Call failed or its Result embeds protocol errors,
// is delivered upstream as a Result carrying a single ClassifiedError.
// The classifier never fails its own Call for an operational failure, so
// upstream stages make retry decisions on plain values.
package classify

import (
	"context"
	"errors"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/vietddude/gqlclient/internal/core/domain"
	"github.com/vietddude/gqlclient/internal/infra/graphql/link"
	"github.com/vietddude/gqlclient/internal/infra/graphql/transport"
)

// Extension codes reported by GraphQL servers.
const (
	CodeValidationFailed   = "GRAPHQL_VALIDATION_FAILED"
	CodeParseFailed        = "GRAPHQL_PARSE_FAILED"
	CodeBadRequest         = "BAD_REQUEST"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// MessageNetworkError is the message of every NetworkError.
const MessageNetworkError = "failed connecting to GraphQL service"

const stageName = "classify"

// Classifier is the error-classification stage.
type Classifier struct {
	next link.Stage
}

// New wraps next with a Classifier.
func New(next link.Stage) *Classifier {
	return &Classifier{next: next}
}

// Middleware returns the classifier as a link.Middleware.
func Middleware() link.Middleware {
	return func(next link.Stage) link.Stage {
		return New(next)
	}
}

// Invoke implements link.Stage.
func (c *Classifier) Invoke(ctx context.Context, op *domain.Operation) *link.Call {
	return link.Go(ctx, stageName, func(ctx context.Context) (*domain.Result, error) {
		res, err := link.Await(ctx, stageName, c.next, op)
		if err != nil {
			if ctx.Err() != nil || link.IsStageFault(err) {
				return nil, err
			}
			return domain.ErrorResult(ClassifyFailure(err)), nil
		}
		return ClassifyResult(res), nil
	})
}

// ClassifyResult inspects the first embedded error of a raw result.
// A SERVICE_UNAVAILABLE error passes through unmodified so its extensions
// stay visible upstream; any other error is replaced by a single
// UnexpectedError. Results without errors are returned as-is.
func ClassifyResult(res *domain.Result) *domain.Result {
	if !res.HasErrors() {
		return res
	}

	first := res.Errors[0]

	var gqlErr *gqlerror.Error
	if !errors.As(first, &gqlErr) {
		if _, ok := domain.AsClassified(first); ok {
			return res
		}
		return domain.ErrorResult(domain.NewClassifiedError(domain.KindUnexpectedError, first.Error(), first))
	}

	if extensionCode(gqlErr) == CodeServiceUnavailable {
		return res
	}

	return domain.ErrorResult(fromProtocolError(domain.KindUnexpectedError, gqlErr))
}

// ClassifyFailure classifies a terminal failure of the downstream stage.
func ClassifyFailure(err error) *domain.ClassifiedError {
	var netFault *transport.NetworkFault
	if errors.As(err, &netFault) {
		return domain.NewClassifiedError(domain.KindNetworkError, MessageNetworkError, netFault)
	}

	var protoFault *transport.ProtocolFault
	if errors.As(err, &protoFault) {
		if len(protoFault.Result.Errors) == 0 {
			return domain.NewClassifiedError(domain.KindUnexpectedError, protoFault.Error(), protoFault)
		}
		gqlErr := protoFault.Result.Errors[0]
		return fromProtocolError(KindForProtocolError(gqlErr), gqlErr)
	}

	if ce, ok := domain.AsClassified(err); ok {
		return ce
	}

	return domain.NewClassifiedError(domain.KindUnexpectedError, err.Error(), err)
}

// KindForProtocolError maps a protocol error's extension code to a kind.
func KindForProtocolError(gqlErr *gqlerror.Error) domain.ErrorKind {
	switch extensionCode(gqlErr) {
	case CodeValidationFailed, CodeParseFailed, CodeBadRequest:
		return domain.KindBadGraphQLRequest
	case CodeServiceUnavailable:
		if retry, ok := gqlErr.Extensions["retry"].(bool); ok && !retry {
			return domain.KindServiceUnavailableWithoutRetry
		}
		return domain.KindServiceUnavailableWithRetry
	default:
		return domain.KindUnexpectedError
	}
}

func fromProtocolError(kind domain.ErrorKind, gqlErr *gqlerror.Error) *domain.ClassifiedError {
	ce := domain.NewClassifiedError(kind, gqlErr.Message, gqlErr)
	if info, ok := gqlErr.Extensions["exception"].(map[string]any); ok {
		ce.Info = info
	}
	return ce
}

func extensionCode(gqlErr *gqlerror.Error) string {
	if gqlErr == nil || gqlErr.Extensions == nil {
		return ""
	}
	code, _ := gqlErr.Extensions["code"].(string)
	return code
}
