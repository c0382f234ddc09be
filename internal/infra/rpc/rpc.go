// Package rpc provides a resilient JSON-RPC client for the chain node.
//
// This package offers:
//   - Single and batch calls over HTTP
//   - Error classification and bounded exponential retry
//   - Throttle and health monitoring
//   - Prometheus call/error/latency metrics
//
// # Quick Start
//
//	p := rpc.NewHTTPProvider("base", rpcURL, 30*time.Second)
//	client := rpc.NewClient(p, rpc.DefaultRetryConfig)
//
//	raw, err := client.Call(ctx, "eth_blockNumber", nil)
//
// # Package Structure
//
//   - provider/ - HTTPProvider and throttle monitoring
//   - routing/  - Error classification and retry
package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vietddude/firstbuy/internal/indexing/metrics"
	"github.com/vietddude/firstbuy/internal/infra/rpc/provider"
	"github.com/vietddude/firstbuy/internal/infra/rpc/routing"
)

// Provider is the core interface for RPC endpoints.
type Provider = provider.Provider

// HTTPProvider implements Provider for JSON-RPC over HTTP.
type HTTPProvider = provider.HTTPProvider

// BatchRequest represents a single request in a batch call.
type BatchRequest = provider.BatchRequest

// BatchResponse represents a single response from a batch call.
type BatchResponse = provider.BatchResponse

// RPCError is a JSON-RPC error object returned by the node.
type RPCError = provider.RPCError

// HealthStatus represents the health state of a provider.
type HealthStatus = provider.HealthStatus

// RetryConfig defines retry behavior.
type RetryConfig = routing.RetryConfig

// DefaultRetryConfig provides sensible retry defaults.
var DefaultRetryConfig = routing.DefaultRetryConfig

// NewHTTPProvider creates a new HTTP-based RPC provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return provider.NewHTTPProvider(name, endpoint, timeout)
}

// Client is the high-level interface for making RPC calls.
// This is what application layers should use.
type Client struct {
	provider provider.Provider
	retry    routing.RetryConfig
}

// NewClient creates a new RPC client.
func NewClient(p provider.Provider, retry routing.RetryConfig) *Client {
	return &Client{provider: p, retry: retry}
}

// Call makes an RPC call with retry.
func (c *Client) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	start := time.Now()
	name := c.provider.GetName()
	metrics.RPCCallsTotal.WithLabelValues(name, method).Inc()

	result, err := routing.CallWithRetry(ctx, c.provider, method, params, c.retry)
	metrics.RPCLatency.WithLabelValues(name, method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(name, routing.ClassifyError(err).String()).Inc()
		return nil, err
	}
	return result, nil
}

// BatchCall makes a batch RPC call with retry on transport failures.
// method labels the batch in metrics.
func (c *Client) BatchCall(ctx context.Context, method string, requests []BatchRequest) ([]BatchResponse, error) {
	start := time.Now()
	name := c.provider.GetName()
	metrics.RPCCallsTotal.WithLabelValues(name, method).Inc()

	resps, err := routing.BatchCallWithRetry(ctx, c.provider, requests, c.retry)
	metrics.RPCLatency.WithLabelValues(name, method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(name, routing.ClassifyError(err).String()).Inc()
		return nil, err
	}
	return resps, nil
}

// Health returns the underlying provider's health.
func (c *Client) Health() HealthStatus {
	return c.provider.GetHealth()
}

// Close releases the underlying provider.
func (c *Client) Close() error {
	return c.provider.Close()
}
