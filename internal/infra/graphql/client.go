package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/vietddude/gqlclient/internal/core/domain"
	"github.com/vietddude/gqlclient/internal/infra/graphql/link"
	"github.com/vietddude/gqlclient/internal/metrics"
)

var (
	// ErrEmptyQuery is returned for a request without a document.
	ErrEmptyQuery = errors.New("graphql: empty query")

	// ErrNotQuery is returned when Query is given a mutation.
	ErrNotQuery = errors.New("graphql: document is not a query")

	// ErrNotMutation is returned when Mutate is given a query.
	ErrNotMutation = errors.New("graphql: document is not a mutation")

	// ErrUnsupportedOperation is returned for subscriptions.
	ErrUnsupportedOperation = errors.New("graphql: unsupported operation type")

	// ErrNoResult is returned when the chain completed without a result.
	ErrNoResult = errors.New("graphql: no result")
)

// Request is a caller-facing GraphQL request.
type Request struct {
	Query         string
	Variables     map[string]any
	OperationName string
}

// Client is the high-level entry point for queries and mutations.
// This is what application layers should use.
type Client struct {
	stage  Stage
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client that sends every request through stage.
func NewClient(stage Stage, opts ...ClientOption) *Client {
	c := &Client{
		stage:  stage,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query runs a query document. txID correlates the request across retries;
// a random id is generated when it is empty.
//
// Failures are *ClassifiedError values, with one exception: a
// SERVICE_UNAVAILABLE error embedded in a successful response is returned
// as the server's *gqlerror.Error, unclassified and not retried, so that
// its extensions stay readable. KindOf reports false for it.
func (c *Client) Query(ctx context.Context, req Request, txID string) (json.RawMessage, error) {
	return c.run(ctx, req, domain.OperationQuery, txID)
}

// Mutate runs a mutation document. txID and errors behave as in Query.
func (c *Client) Mutate(ctx context.Context, req Request, txID string) (json.RawMessage, error) {
	return c.run(ctx, req, domain.OperationMutation, txID)
}

// Execute sends op through the chain and waits for its Result.
// Cancelling ctx cancels the in-flight Call.
func (c *Client) Execute(ctx context.Context, op *domain.Operation) (*domain.Result, error) {
	return link.Await(ctx, "client", c.stage, op)
}

func (c *Client) run(ctx context.Context, req Request, want domain.OperationType, txID string) (json.RawMessage, error) {
	op, err := buildOperation(req, want)
	if err != nil {
		return nil, err
	}

	if txID == "" {
		txID = uuid.NewString()
	}
	op = op.WithContext(domain.ContextTransactionID, txID)

	start := time.Now()
	res, err := c.Execute(ctx, op)
	metrics.RequestLatency.WithLabelValues(metrics.OperationLabel(op.Name), string(op.Type)).
		Observe(time.Since(start).Seconds())

	data, err := unwrapResult(res, err)
	metrics.RequestsTotal.WithLabelValues(metrics.OperationLabel(op.Name), string(op.Type), outcomeLabel(err)).Inc()

	if err != nil {
		c.logger.Debug("GraphQL request failed",
			"operation", op.Name,
			"type", op.Type,
			"transaction_id", txID,
			"error", err)
		return nil, err
	}
	return data, nil
}

// unwrapResult turns a chain outcome into the caller contract: the first
// error of the Result, or its data.
func unwrapResult(res *domain.Result, err error) (json.RawMessage, error) {
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNoResult
	}
	if first := res.FirstError(); first != nil {
		return nil, first
	}
	return res.Data, nil
}

// buildOperation resolves the operation name and type from the document.
// A document the parser rejects is sent as-is so the service can report
// the parse failure.
func buildOperation(req Request, want domain.OperationType) (*domain.Operation, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	name, typ, err := inspectDocument(req.Query, req.OperationName)
	if err != nil {
		return domain.NewOperation(req.OperationName, want, req.Query, req.Variables), nil
	}

	switch {
	case typ == ast.Subscription:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, typ)
	case want == domain.OperationQuery && typ != ast.Query:
		return nil, ErrNotQuery
	case want == domain.OperationMutation && typ != ast.Mutation:
		return nil, ErrNotMutation
	}

	return domain.NewOperation(name, want, req.Query, req.Variables), nil
}

// inspectDocument parses query and returns the name and type of the selected
// operation: the one named operationName, or the first one.
func inspectDocument(query, operationName string) (string, ast.Operation, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return "", "", fmt.Errorf("parse document: %w", err)
	}
	if len(doc.Operations) == 0 {
		return "", "", errors.New("parse document: no operation")
	}

	selected := doc.Operations[0]
	if operationName != "" {
		selected = doc.Operations.ForName(operationName)
		if selected == nil {
			return "", "", fmt.Errorf("parse document: operation %q not found", operationName)
		}
	}
	return selected.Name, selected.Operation, nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, link.ErrCanceled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	if link.IsStageFault(err) {
		return "fault"
	}
	if kind, ok := domain.KindOf(err); ok {
		return kind.String()
	}
	return "unclassified"
}

// Decode unmarshals response data into v.
func Decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return ErrNoResult
	}
	if err := gojson.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
