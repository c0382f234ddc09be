package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPProvider_Call(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}

		if v, ok := req["jsonrpc"].(string); !ok || v != "2.0" {
			t.Errorf("expected jsonrpc: 2.0, got %v", req["jsonrpc"])
		}
		if req["method"] != "eth_blockNumber" {
			t.Errorf("unexpected method %v", req["method"])
		}
		if params, ok := req["params"].([]any); !ok || len(params) != 0 {
			t.Errorf("expected empty params array, got %v", req["params"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"result":  "0x123",
			"id":      req["id"],
		})
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)

	result, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var hex string
	if err := json.Unmarshal(result, &hex); err != nil || hex != "0x123" {
		t.Errorf("expected 0x123, got %s", result)
	}
	if !p.GetHealth().Available {
		t.Error("expected provider to be available")
	}
}

func TestHTTPProvider_CallRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid argument 0"}}`))
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)
	_, err := p.Call(context.Background(), "eth_getBlockByNumber", []any{"bad", true})

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != -32602 {
		t.Errorf("expected code -32602, got %d", rpcErr.Code)
	}
}

func TestHTTPProvider_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)
	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err == nil {
		t.Fatal("expected error on 429")
	}
	if p.Monitor.GetStats().ThrottleCount429 != 1 {
		t.Error("expected throttle to be recorded")
	}
}

func TestHTTPProvider_BatchCallReordersByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqs []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
			t.Errorf("failed to decode batch: %v", err)
			return
		}

		// Answer in reverse order; the second request fails.
		resps := make([]map[string]any, 0, len(reqs))
		for i := len(reqs) - 1; i >= 0; i-- {
			id := reqs[i]["id"]
			params := reqs[i]["params"].([]any)
			if i == 1 {
				resps = append(resps, map[string]any{
					"jsonrpc": "2.0",
					"id":      id,
					"error":   map[string]any{"code": -32000, "message": "header not found"},
				})
				continue
			}
			resps = append(resps, map[string]any{"jsonrpc": "2.0", "id": id, "result": params[0]})
		}
		json.NewEncoder(w).Encode(resps)
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)
	reqs := []BatchRequest{
		{Method: "eth_getBlockByNumber", Params: []any{"0xa", true}},
		{Method: "eth_getBlockByNumber", Params: []any{"0xb", true}},
		{Method: "eth_getBlockByNumber", Params: []any{"0xc", true}},
	}

	resps, err := p.BatchCall(context.Background(), reqs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resps) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(resps))
	}
	if string(resps[0].Result) != `"0xa"` || string(resps[2].Result) != `"0xc"` {
		t.Errorf("responses not in request order: %s, %s", resps[0].Result, resps[2].Result)
	}
	if resps[1].Error == nil {
		t.Error("expected error for second request")
	}
}

func TestHTTPProvider_BatchCallMissingResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"jsonrpc":"2.0","id":1,"result":"0x1"}]`))
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)
	resps, err := p.BatchCall(context.Background(), []BatchRequest{
		{Method: "eth_blockNumber"},
		{Method: "eth_blockNumber"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resps[0].Error != nil {
		t.Errorf("unexpected error for first request: %v", resps[0].Error)
	}
	if resps[1].Error == nil {
		t.Error("expected missing response to be reported as an error")
	}
}

func TestHTTPProvider_BatchCallWholeBatchRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32600,"message":"batch too large"}}`))
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)
	_, err := p.BatchCall(context.Background(), []BatchRequest{{Method: "eth_blockNumber"}})

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32600 {
		t.Fatalf("expected batch rejection error, got %v", err)
	}
}
