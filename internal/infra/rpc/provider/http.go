package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// HTTPProvider implements Provider for JSON-RPC over HTTP.
type HTTPProvider struct {
	name       string
	endpoint   string
	httpClient *http.Client

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *ProviderMonitor
}

// NewHTTPProvider creates a new HTTP-based RPC provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:     name,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewProviderMonitor(),
	}
}

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type jsonrpcResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Call makes a single JSON-RPC call.
func (p *HTTPProvider) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	start := time.Now()

	if err := p.backoffErr(); err != nil {
		return nil, err
	}

	if params == nil {
		params = []any{}
	}
	body, err := p.post(ctx, jsonrpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, err
	}

	var rpcResp jsonrpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if rpcResp.Error != nil {
		p.recordFailure()
		if p.Monitor.DetectThrottlePattern(rpcResp.Error.Message) {
			return nil, fmt.Errorf("throttle in rpc error: %w", rpcResp.Error)
		}
		return nil, rpcResp.Error
	}

	latency := time.Since(start)
	p.Monitor.RecordRequest(latency)
	p.recordSuccess(latency)

	return rpcResp.Result, nil
}

// BatchCall makes multiple RPC calls in one request.
// Responses are matched to requests by id, so node-side reordering is harmless.
func (p *HTTPProvider) BatchCall(ctx context.Context, requests []BatchRequest) ([]BatchResponse, error) {
	if len(requests) == 0 {
		return nil, nil
	}
	start := time.Now()

	if err := p.backoffErr(); err != nil {
		return nil, err
	}

	batchReq := make([]jsonrpcRequest, len(requests))
	for i, req := range requests {
		params := req.Params
		if params == nil {
			params = []any{}
		}
		batchReq[i] = jsonrpcRequest{
			JSONRPC: "2.0",
			Method:  req.Method,
			Params:  params,
			ID:      i + 1,
		}
	}

	body, err := p.post(ctx, batchReq)
	if err != nil {
		return nil, err
	}

	var batchResp []jsonrpcResponse
	if err := json.Unmarshal(body, &batchResp); err != nil {
		// Some nodes answer an oversized or rejected batch with a single error object.
		var single jsonrpcResponse
		if json.Unmarshal(body, &single) == nil && single.Error != nil {
			p.recordFailure()
			return nil, single.Error
		}
		p.recordFailure()
		return nil, fmt.Errorf("parse batch response: %w", err)
	}

	responses := make([]BatchResponse, len(requests))
	seen := make([]bool, len(requests))
	for _, r := range batchResp {
		idx := r.ID - 1
		if idx < 0 || idx >= len(requests) || seen[idx] {
			continue
		}
		seen[idx] = true
		if r.Error != nil {
			responses[idx] = BatchResponse{Error: r.Error}
		} else {
			responses[idx] = BatchResponse{Result: r.Result}
		}
	}
	for i, ok := range seen {
		if !ok {
			responses[i] = BatchResponse{Error: fmt.Errorf("missing response for request id %d", i+1)}
		}
	}

	latency := time.Since(start)
	p.Monitor.RecordRequest(latency)
	p.recordSuccess(latency)
	return responses, nil
}

// post sends payload and returns the raw body of a 200 response.
func (p *HTTPProvider) post(ctx context.Context, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	// Rate limit detection
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		p.Monitor.RecordThrottle(http.StatusTooManyRequests, retryAfter)
		p.recordFailure()
		return nil, fmt.Errorf("rate limited (429), retry after: %s", retryAfter)
	}

	// IP blocked detection
	if resp.StatusCode == http.StatusForbidden {
		p.Monitor.RecordThrottle(http.StatusForbidden, "")
		p.recordFailure()
		return nil, fmt.Errorf("ip blocked (403)")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.recordFailure()

		if p.Monitor.DetectThrottlePattern(string(body)) {
			return nil, fmt.Errorf("throttle detected in response: %s", string(body))
		}

		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// GetHealth returns the provider's health status.
func (p *HTTPProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h := p.health
	stats := p.Monitor.GetStats()
	h.MonitorStats = &stats
	return h
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// backoffErr refuses calls while the node has asked us to back off.
func (p *HTTPProvider) backoffErr() error {
	if p.IsAvailable() {
		return nil
	}
	return fmt.Errorf("provider %s, retry after: %v", p.Monitor.CheckProviderStatus(), p.Monitor.GetRetryAfter())
}

// IsAvailable checks if the provider is available.
func (p *HTTPProvider) IsAvailable() bool {
	status := p.Monitor.CheckProviderStatus()
	return status == StatusHealthy || status == StatusDegraded
}

func (p *HTTPProvider) recordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true

	if p.requestCount > 0 {
		p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	}
	if p.successCount > 0 {
		p.health.Latency = p.totalLatency / time.Duration(p.successCount)
	}
}

func (p *HTTPProvider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()

	if p.requestCount > 0 {
		p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	}

	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}
