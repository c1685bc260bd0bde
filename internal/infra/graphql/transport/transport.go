// Package transport implements GraphQL over HTTP.
//
// The transport is the terminal stage of the pipeline. It produces either a
// raw Result (data plus any embedded protocol errors) or one of two fault
// shapes: NetworkFault when no response was received, and ProtocolFault
// for a non-2xx response.
package transport

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/vietddude/gqlclient/internal/core/domain"
	"github.com/vietddude/gqlclient/internal/infra/graphql/link"
	"github.com/vietddude/gqlclient/internal/metrics"
)

const maxFaultBody = 512

// HTTPTransport sends operations to a GraphQL endpoint.
type HTTPTransport struct {
	endpoint   string
	httpClient *http.Client
	headers    map[string]string
	logger     *slog.Logger

	Stats *Stats
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *HTTPTransport) {
		t.httpClient = c
	}
}

// WithHeader adds a static header sent with every request.
func WithHeader(key, value string) Option {
	return func(t *HTTPTransport) {
		t.headers[key] = value
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = l
	}
}

// NewHTTPTransport creates a transport for endpoint.
func NewHTTPTransport(endpoint string, timeout time.Duration, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		headers: map[string]string{},
		logger:  slog.Default(),
		Stats:   NewStats(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type wireRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

type wireResponse struct {
	Data   stdjson.RawMessage `json:"data"`
	Errors gqlerror.List      `json:"errors"`
}

// Invoke implements link.Stage.
func (t *HTTPTransport) Invoke(ctx context.Context, op *domain.Operation) *link.Call {
	return link.Go(ctx, "transport", func(ctx context.Context) (*domain.Result, error) {
		return t.Execute(ctx, op)
	})
}

// Execute performs one blocking round trip for op.
func (t *HTTPTransport) Execute(ctx context.Context, op *domain.Operation) (*domain.Result, error) {
	start := time.Now()
	label := metrics.OperationLabel(op.Name)

	res, err := t.do(ctx, op)

	latency := time.Since(start)
	metrics.TransportLatency.WithLabelValues(label).Observe(latency.Seconds())

	if err != nil && ctx.Err() != nil {
		// Abandoned by the caller; the endpoint's health is unknown.
		metrics.TransportRequests.WithLabelValues(label, "canceled").Inc()
		return res, err
	}

	switch err.(type) {
	case nil:
		t.Stats.RecordSuccess(latency)
		metrics.TransportRequests.WithLabelValues(label, "ok").Inc()
	case *ProtocolFault:
		t.Stats.RecordFailure()
		metrics.TransportRequests.WithLabelValues(label, "protocol_fault").Inc()
	case *NetworkFault:
		t.Stats.RecordFailure()
		metrics.TransportRequests.WithLabelValues(label, "network_fault").Inc()
	default:
		t.Stats.RecordFailure()
		metrics.TransportRequests.WithLabelValues(label, "error").Inc()
	}

	return res, err
}

func (t *HTTPTransport) do(ctx context.Context, op *domain.Operation) (*domain.Result, error) {
	body, err := json.Marshal(wireRequest{
		Query:         op.Query,
		Variables:     op.Variables,
		OperationName: op.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	for k, v := range op.Headers() {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, t.networkFault(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.networkFault(err)
	}

	t.logger.Debug("GraphQL response received",
		"operation", op.Name,
		"status", resp.StatusCode,
		"transaction_id", op.TransactionID())

	var wire wireResponse
	decodeErr := json.Unmarshal(raw, &wire)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fault := &ProtocolFault{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(raw), maxFaultBody),
		}
		if decodeErr == nil {
			fault.Result.Errors = wire.Errors
		}
		return nil, fault
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("parse response: %w", decodeErr)
	}

	result := &domain.Result{}
	if len(wire.Data) > 0 && string(wire.Data) != "null" {
		result.Data = wire.Data
	}
	for _, gqlErr := range wire.Errors {
		result.Errors = append(result.Errors, gqlErr)
	}

	return result, nil
}

func (t *HTTPTransport) networkFault(err error) error {
	code := networkCode(err)
	if code == "" {
		code = CodeNetwork
	}
	return &NetworkFault{Code: code, Err: err}
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
