package domain

import "maps"

// Context keys understood by the transport.
const (
	ContextTransactionID = "transaction_id"
	ContextHeaders       = "headers"
)

// TransactionIDHeader is the request header carrying the caller's transaction id.
const TransactionIDHeader = "x-transaction-id"

// OperationType distinguishes queries from mutations.
type OperationType string

const (
	OperationQuery    OperationType = "query"
	OperationMutation OperationType = "mutation"
)

// Operation is one query or mutation request.
// Stages only read it; use WithContext to derive a copy with more metadata.
type Operation struct {
	// Name is the GraphQL operation name (may be empty for anonymous documents)
	Name string

	// Type is query or mutation
	Type OperationType

	// Query is the GraphQL document
	Query string

	// Variables are sent alongside the document
	Variables map[string]any

	// Context carries arbitrary request metadata, e.g. the transaction id.
	Context map[string]any
}

// NewOperation creates an Operation with an empty context.
func NewOperation(name string, typ OperationType, query string, variables map[string]any) *Operation {
	return &Operation{
		Name:      name,
		Type:      typ,
		Query:     query,
		Variables: variables,
		Context:   map[string]any{},
	}
}

// WithContext returns a copy of the operation with key set in its context.
func (o *Operation) WithContext(key string, value any) *Operation {
	cp := *o
	cp.Context = make(map[string]any, len(o.Context)+1)
	maps.Copy(cp.Context, o.Context)
	cp.Context[key] = value
	return &cp
}

// TransactionID returns the correlation id attached to the operation, if any.
func (o *Operation) TransactionID() string {
	id, _ := o.Context[ContextTransactionID].(string)
	return id
}

// Headers renders the request metadata carried in the context as HTTP headers.
func (o *Operation) Headers() map[string]string {
	headers := make(map[string]string)

	switch h := o.Context[ContextHeaders].(type) {
	case map[string]string:
		maps.Copy(headers, h)
	case map[string]any:
		for k, v := range h {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	if id := o.TransactionID(); id != "" {
		headers[TransactionIDHeader] = id
	}

	return headers
}
