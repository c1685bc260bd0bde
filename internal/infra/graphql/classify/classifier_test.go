package classify

import (
	"context"
	"encoding/json"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/vietddude/gqlclient/internal/core/domain"
	"github.com/vietddude/gqlclient/internal/infra/graphql/link"
	"github.com/vietddude/gqlclient/internal/infra/graphql/transport"
)

// stubStage answers every invocation with a fixed outcome.
func stubStage(res *domain.Result, err error) link.Stage {
	return link.StageFunc(func(ctx context.Context, op *domain.Operation) *link.Call {
		return link.Go(ctx, "stub", func(ctx context.Context) (*domain.Result, error) {
			return res, err
		})
	})
}

func testOp() *domain.Operation {
	return domain.NewOperation("GetUser", domain.OperationQuery, "query GetUser { user { id } }", nil)
}

func protoErr(message string, ext map[string]any) *gqlerror.Error {
	return &gqlerror.Error{Message: message, Extensions: ext}
}

func invoke(t *testing.T, next link.Stage) (*domain.Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return New(next).Invoke(ctx, testOp()).Wait(ctx)
}

func requireSingleClassified(t *testing.T, res *domain.Result) *domain.ClassifiedError {
	t.Helper()
	require.NotNil(t, res)
	assert.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
	ce, ok := domain.AsClassified(res.Errors[0])
	require.True(t, ok, "expected a classified error, got %T", res.Errors[0])
	return ce
}

func TestClassifier_SuccessPassesThrough(t *testing.T) {
	raw := &domain.Result{Data: json.RawMessage(`{"user":{"id":"1"}}`)}

	res, err := invoke(t, stubStage(raw, nil))
	require.NoError(t, err)
	assert.Same(t, raw, res)
	assert.Equal(t, `{"user":{"id":"1"}}`, string(res.Data))
	assert.Empty(t, res.Errors)
}

func TestClassifier_EmptyStreamPassesThrough(t *testing.T) {
	res, err := invoke(t, stubStage(nil, nil))
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestClassifier_EmbeddedServiceUnavailableUnmodified(t *testing.T) {
	gqlErr := protoErr("try later", map[string]any{"code": CodeServiceUnavailable, "retry": true})
	raw := &domain.Result{Errors: []error{gqlErr}}

	res, err := invoke(t, stubStage(raw, nil))
	require.NoError(t, err)
	assert.Same(t, raw, res)
	assert.Same(t, gqlErr, res.Errors[0])
}

func TestClassifier_EmbeddedErrorBecomesUnexpected(t *testing.T) {
	exception := map[string]any{"stacktrace": []any{"Error: db gone"}}
	raw := &domain.Result{
		Data: json.RawMessage(`{"user":null}`),
		Errors: []error{
			protoErr("db gone", map[string]any{"code": "INTERNAL_SERVER_ERROR", "exception": exception}),
			protoErr("second", nil),
		},
	}

	res, err := invoke(t, stubStage(raw, nil))
	require.NoError(t, err)

	ce := requireSingleClassified(t, res)
	assert.Equal(t, domain.KindUnexpectedError, ce.Kind)
	assert.Equal(t, "db gone", ce.Message)
	assert.Equal(t, exception, ce.Info)

	var gqlErr *gqlerror.Error
	assert.ErrorAs(t, ce, &gqlErr)
}

func TestClassifier_NetworkFault(t *testing.T) {
	fault := &transport.NetworkFault{Code: transport.CodeConnRefused, Err: syscall.ECONNREFUSED}

	res, err := invoke(t, stubStage(nil, fault))
	require.NoError(t, err)

	ce := requireSingleClassified(t, res)
	assert.Equal(t, domain.KindNetworkError, ce.Kind)
	assert.Equal(t, MessageNetworkError, ce.Message)
	assert.ErrorIs(t, ce, syscall.ECONNREFUSED)
}

func TestClassifier_ProtocolFaultKinds(t *testing.T) {
	tests := []struct {
		name string
		ext  map[string]any
		want domain.ErrorKind
	}{
		{"validation", map[string]any{"code": CodeValidationFailed}, domain.KindBadGraphQLRequest},
		{"bad request", map[string]any{"code": CodeBadRequest}, domain.KindBadGraphQLRequest},
		{"parse failed", map[string]any{"code": CodeParseFailed}, domain.KindBadGraphQLRequest},
		{"unavailable no retry", map[string]any{"code": CodeServiceUnavailable, "retry": false}, domain.KindServiceUnavailableWithoutRetry},
		{"unavailable retry", map[string]any{"code": CodeServiceUnavailable, "retry": true}, domain.KindServiceUnavailableWithRetry},
		{"unavailable no flag", map[string]any{"code": CodeServiceUnavailable}, domain.KindServiceUnavailableWithRetry},
		{"unavailable non-bool flag", map[string]any{"code": CodeServiceUnavailable, "retry": "false"}, domain.KindServiceUnavailableWithRetry},
		{"unknown code", map[string]any{"code": "FORBIDDEN"}, domain.KindUnexpectedError},
		{"no extensions", nil, domain.KindUnexpectedError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fault := &transport.ProtocolFault{StatusCode: 400}
			fault.Result.Errors = gqlerror.List{protoErr("failure "+tt.name, tt.ext)}

			res, err := invoke(t, stubStage(nil, fault))
			require.NoError(t, err)

			ce := requireSingleClassified(t, res)
			assert.Equal(t, tt.want, ce.Kind)
			assert.Equal(t, "failure "+tt.name, ce.Message)
		})
	}
}

func TestClassifier_ProtocolFaultWithoutErrors(t *testing.T) {
	fault := &transport.ProtocolFault{StatusCode: 502, Body: "bad gateway"}

	res, err := invoke(t, stubStage(nil, fault))
	require.NoError(t, err)

	ce := requireSingleClassified(t, res)
	assert.Equal(t, domain.KindUnexpectedError, ce.Kind)
	assert.ErrorIs(t, ce, fault)
}

func TestClassifier_UnknownFailureIsUnexpected(t *testing.T) {
	boom := errors.New("parse response: invalid character")

	res, err := invoke(t, stubStage(nil, boom))
	require.NoError(t, err)

	ce := requireSingleClassified(t, res)
	assert.Equal(t, domain.KindUnexpectedError, ce.Kind)
	assert.ErrorIs(t, ce, boom)
}

func TestClassifier_StageFaultTerminatesAbnormally(t *testing.T) {
	panicking := link.StageFunc(func(ctx context.Context, op *domain.Operation) *link.Call {
		panic("transport not configured")
	})

	res, err := invoke(t, panicking)
	assert.Nil(t, res)
	assert.True(t, link.IsStageFault(err))
}

func TestClassifier_CancelPropagatesDownstream(t *testing.T) {
	downstream := make(chan *link.Call, 1)
	blocking := link.StageFunc(func(ctx context.Context, op *domain.Operation) *link.Call {
		call := link.Go(ctx, "blocking", func(ctx context.Context) (*domain.Result, error) {
			<-ctx.Done()
			return nil, &transport.NetworkFault{Code: transport.CodeConnReset, Err: ctx.Err()}
		})
		downstream <- call
		return call
	})

	call := New(blocking).Invoke(context.Background(), testOp())
	inner := <-downstream

	call.Cancel()

	select {
	case <-inner.Done():
	case <-time.After(time.Second):
		t.Fatal("downstream call was not cancelled")
	}

	res, err := call.Outcome()
	assert.Nil(t, res)
	assert.ErrorIs(t, err, link.ErrCanceled)
	assert.True(t, inner.Canceled())
}

func TestClassifyResult_AlreadyClassified(t *testing.T) {
	ce := domain.NewClassifiedError(domain.KindBadGraphQLRequest, "bad", nil)
	raw := &domain.Result{Errors: []error{ce}}
	assert.Same(t, raw, ClassifyResult(raw))

	plain := &domain.Result{Errors: []error{errors.New("odd")}}
	got := ClassifyResult(plain)
	kind, ok := domain.KindOf(got.Errors[0])
	require.True(t, ok)
	assert.Equal(t, domain.KindUnexpectedError, kind)
}
