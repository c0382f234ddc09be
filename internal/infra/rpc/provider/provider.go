// Package provider talks JSON-RPC 2.0 to a single chain node over HTTP and
// watches it for throttling.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Provider is one JSON-RPC endpoint.
type Provider interface {
	GetName() string
	GetHealth() HealthStatus
	IsAvailable() bool

	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)

	// BatchCall sends all requests in one HTTP round trip. The i-th response
	// answers the i-th request; per-item failures are reported in
	// BatchResponse.Error, not as the returned error.
	BatchCall(ctx context.Context, requests []BatchRequest) ([]BatchResponse, error)

	Close() error
}

// BatchRequest is one item of a batch call.
type BatchRequest struct {
	Method string
	Params []any
}

// BatchResponse answers one BatchRequest.
type BatchResponse struct {
	Result json.RawMessage
	Error  error
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HealthStatus summarizes the provider's recent calls.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"` // mean over successful calls
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}
