package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/vietddude/gqlclient/internal/core/domain"
)

func pingOp() *domain.Operation {
	return domain.NewOperation("Ping", domain.OperationQuery, "query Ping { ping }", map[string]any{"n": 1}).
		WithContext(domain.ContextTransactionID, "tx-1")
}

func TestHTTPTransport_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get(domain.TransactionIDHeader); got != "tx-1" {
			t.Errorf("expected transaction id tx-1, got %q", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}
		if body["operationName"] != "Ping" {
			t.Errorf("expected operationName Ping, got %v", body["operationName"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"ping":"pong"}}`))
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, 5*time.Second)

	res, err := tr.Invoke(context.Background(), pingOp()).Wait(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ping":"pong"}`, string(res.Data))
	assert.Empty(t, res.Errors)

	health := tr.Stats.Health()
	assert.True(t, health.Available)
	assert.Equal(t, 1, health.Requests)
	assert.Zero(t, health.ErrorRate)
}

func TestHTTPTransport_EmbeddedErrors(t *testing.T) {
	defer gock.Off()

	gock.New("http://graphql.test").
		Post("/graphql").
		MatchHeader(domain.TransactionIDHeader, "tx-1").
		Reply(200).
		JSON(map[string]any{
			"data": nil,
			"errors": []any{
				map[string]any{
					"message":    "upstream down",
					"extensions": map[string]any{"code": "SERVICE_UNAVAILABLE", "retry": true},
				},
			},
		})

	httpClient := &http.Client{}
	gock.InterceptClient(httpClient)
	defer gock.RestoreClient(httpClient)

	tr := NewHTTPTransport("http://graphql.test/graphql", time.Second, WithHTTPClient(httpClient))

	res, err := tr.Execute(context.Background(), pingOp())
	require.NoError(t, err)
	assert.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)

	var gqlErr *gqlerror.Error
	require.ErrorAs(t, res.Errors[0], &gqlErr)
	assert.Equal(t, "upstream down", gqlErr.Message)
	assert.Equal(t, "SERVICE_UNAVAILABLE", gqlErr.Extensions["code"])
	assert.Equal(t, true, gqlErr.Extensions["retry"])
	assert.True(t, gock.IsDone())
}

func TestHTTPTransport_ProtocolFault(t *testing.T) {
	defer gock.Off()

	gock.New("http://graphql.test").
		Post("/graphql").
		Reply(400).
		JSON(map[string]any{
			"errors": []any{
				map[string]any{
					"message":    `Cannot query field "pong"`,
					"extensions": map[string]any{"code": "GRAPHQL_VALIDATION_FAILED"},
				},
			},
		})

	httpClient := &http.Client{}
	gock.InterceptClient(httpClient)
	defer gock.RestoreClient(httpClient)

	tr := NewHTTPTransport("http://graphql.test/graphql", time.Second, WithHTTPClient(httpClient))

	_, err := tr.Execute(context.Background(), pingOp())
	var fault *ProtocolFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, 400, fault.StatusCode)
	require.Len(t, fault.Result.Errors, 1)
	assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", fault.Result.Errors[0].Extensions["code"])
	assert.Equal(t, 1, tr.Stats.Health().Requests)
}

func TestHTTPTransport_ProtocolFaultWithoutErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, 5*time.Second)

	_, err := tr.Execute(context.Background(), pingOp())
	var fault *ProtocolFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, http.StatusBadGateway, fault.StatusCode)
	assert.Empty(t, fault.Result.Errors)
	assert.Contains(t, fault.Error(), "bad gateway")
}

func TestHTTPTransport_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	tr := NewHTTPTransport("http://"+addr+"/graphql", time.Second)

	_, err = tr.Execute(context.Background(), pingOp())
	var fault *NetworkFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, CodeConnRefused, fault.Code)

	health := tr.Stats.Health()
	assert.Equal(t, 1.0, health.ErrorRate)
	assert.False(t, health.Available)
}

func TestHTTPTransport_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, 50*time.Millisecond)

	_, err := tr.Execute(context.Background(), pingOp())
	var fault *NetworkFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, CodeTimeout, fault.Code)
}

func TestHTTPTransport_CancelledContextIsNotAFault(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-release
	}))
	defer server.Close()
	defer close(release)

	tr := NewHTTPTransport(server.URL, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := tr.Execute(ctx, pingOp())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var fault *NetworkFault
	assert.False(t, errors.As(err, &fault))

	health := tr.Stats.Health()
	assert.Zero(t, health.Requests)
	assert.True(t, health.Available)
}

func TestHTTPTransport_StaticHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, time.Second, WithHeader("Authorization", "Bearer token"))
	_, err := tr.Execute(context.Background(), pingOp())
	require.NoError(t, err)
}
