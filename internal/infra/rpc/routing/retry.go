package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vietddude/firstbuy/internal/infra/rpc/provider"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig keeps retries short; a failed pass is retried on the next tick anyway.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    200 * time.Millisecond,
	MaxDelay:        2 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFailover
	ActionFatal
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFailover:
		return "failover"
	case ActionFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry // Should not happen
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ActionFatal
	}

	var rpcErr *provider.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case -32700, -32600, -32601, -32602:
			return ActionFatal
		}
	}

	s := err.Error()
	sLower := strings.ToLower(s)

	// Fatal (Code or Request issues)
	// -32700: Parse error, -32600: Invalid Request, -32601: Method not found, -32602: Invalid params
	if strings.Contains(s, "-32700") || strings.Contains(s, "-32600") ||
		strings.Contains(s, "-32601") || strings.Contains(s, "-32602") {
		return ActionFatal
	}

	// Failover (Provider specific issues)
	if strings.Contains(s, "429") || strings.Contains(sLower, "too many requests") ||
		strings.Contains(s, "403") || strings.Contains(sLower, "forbidden") ||
		strings.Contains(sLower, "quota") || strings.Contains(sLower, "plan limit") ||
		strings.Contains(sLower, "unauthorized") ||
		strings.Contains(sLower, "rate limit") ||
		strings.Contains(sLower, "count exceeded") {
		return ActionFailover
	}

	// Default to Retry (Network, 5xx, etc)
	return ActionRetry
}

// CallWithRetry executes an RPC call with exponential backoff.
// Fatal and failover errors stop immediately; there is a single endpoint.
func CallWithRetry(
	ctx context.Context,
	p provider.Provider,
	method string,
	params []any,
	config RetryConfig,
) (json.RawMessage, error) {
	var result json.RawMessage
	err := run(ctx, config, method, func() error {
		r, err := p.Call(ctx, method, params)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// BatchCallWithRetry retries transport-level batch failures.
// Per-request errors inside a successful batch are returned as-is.
func BatchCallWithRetry(
	ctx context.Context,
	p provider.Provider,
	requests []provider.BatchRequest,
	config RetryConfig,
) ([]provider.BatchResponse, error) {
	var result []provider.BatchResponse
	err := run(ctx, config, "batch", func() error {
		r, err := p.BatchCall(ctx, requests)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

func run(ctx context.Context, config RetryConfig, method string, op func() error) error {
	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = config.InitialDelay
	b.MaxInterval = config.MaxDelay
	if config.BackoffMultiple > 0 {
		b.Multiplier = config.BackoffMultiple
	}
	b.MaxElapsedTime = 0

	var lastErr error
	err := backoff.RetryNotify(
		func() error {
			err := op()
			if err == nil {
				return nil
			}
			lastErr = err
			if ClassifyError(err) != ActionRetry {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx),
		func(err error, d time.Duration) {
			slog.Debug("rpc call failed, retrying", "method", method, "delay", d, "error", err)
		},
	)
	if err == nil {
		return nil
	}
	if lastErr != nil && ClassifyError(lastErr) == ActionRetry && ctx.Err() == nil {
		return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
	}
	return err
}
