package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vietddude/firstbuy/internal/infra/rpc/provider"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err    error
		expect ErrorAction
	}{
		{errors.New("429 Too Many Requests"), ActionFailover},
		{errors.New("project rate limit exceeded"), ActionFailover},
		{errors.New("quota exceeded"), ActionFailover},
		{errors.New("daily request count exceeded"), ActionFailover},
		{errors.New("403 Forbidden"), ActionFailover},
		{errors.New("Invalid JSON-RPC request -32600"), ActionFatal},
		{errors.New("Method not found -32601"), ActionFatal},
		{errors.New("Parse error -32700"), ActionFatal},
		{&provider.RPCError{Code: -32602, Message: "invalid argument"}, ActionFatal},
		{fmt.Errorf("wrapped: %w", &provider.RPCError{Code: -32601, Message: "nope"}), ActionFatal},
		{&provider.RPCError{Code: -32000, Message: "header not found"}, ActionRetry},
		{context.Canceled, ActionFatal},
		{errors.New("connection reset by peer"), ActionRetry},
		{errors.New("timeout"), ActionRetry},
		{errors.New("500 Internal Server Error"), ActionRetry},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.expect {
			t.Errorf("ClassifyError(%q) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

// mockProvider fails the first failures calls with err.
type mockProvider struct {
	failures  int
	err       error
	callCount int
}

func (m *mockProvider) GetName() string                  { return "mock" }
func (m *mockProvider) GetHealth() provider.HealthStatus { return provider.HealthStatus{} }
func (m *mockProvider) IsAvailable() bool                { return true }
func (m *mockProvider) Close() error                     { return nil }

func (m *mockProvider) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	m.callCount++
	if m.callCount <= m.failures {
		return nil, m.err
	}
	return json.RawMessage(`"0x1"`), nil
}

func (m *mockProvider) BatchCall(
	ctx context.Context,
	requests []provider.BatchRequest,
) ([]provider.BatchResponse, error) {
	m.callCount++
	if m.callCount <= m.failures {
		return nil, m.err
	}
	return make([]provider.BatchResponse, len(requests)), nil
}

var fastRetry = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    time.Millisecond,
	MaxDelay:        5 * time.Millisecond,
	BackoffMultiple: 2,
}

func TestCallWithRetry_RecoversFromTransientError(t *testing.T) {
	p := &mockProvider{failures: 2, err: errors.New("connection reset by peer")}

	result, err := CallWithRetry(context.Background(), p, "eth_blockNumber", nil, fastRetry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != `"0x1"` {
		t.Errorf("unexpected result %s", result)
	}
	if p.callCount != 3 {
		t.Errorf("expected 3 calls, got %d", p.callCount)
	}
}

func TestCallWithRetry_GivesUp(t *testing.T) {
	p := &mockProvider{failures: 10, err: errors.New("connection reset by peer")}

	_, err := CallWithRetry(context.Background(), p, "eth_blockNumber", nil, fastRetry)
	if err == nil {
		t.Fatal("expected error")
	}
	if p.callCount != 3 {
		t.Errorf("expected 3 calls, got %d", p.callCount)
	}
}

func TestCallWithRetry_FatalStopsImmediately(t *testing.T) {
	rpcErr := &provider.RPCError{Code: -32602, Message: "invalid params"}
	p := &mockProvider{failures: 10, err: rpcErr}

	_, err := CallWithRetry(context.Background(), p, "eth_getBlockByNumber", nil, fastRetry)
	if !errors.Is(err, rpcErr) {
		t.Fatalf("expected rpc error, got %v", err)
	}
	if p.callCount != 1 {
		t.Errorf("expected 1 call, got %d", p.callCount)
	}
}

func TestBatchCallWithRetry(t *testing.T) {
	p := &mockProvider{failures: 1, err: errors.New("http 502: bad gateway")}
	reqs := []provider.BatchRequest{{Method: "eth_blockNumber"}, {Method: "eth_blockNumber"}}

	resps, err := BatchCallWithRetry(context.Background(), p, reqs, fastRetry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resps) != 2 {
		t.Errorf("expected 2 responses, got %d", len(resps))
	}
	if p.callCount != 2 {
		t.Errorf("expected 2 calls, got %d", p.callCount)
	}
}
