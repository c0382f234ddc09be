// Package notifier delivers qualifying transactions.
//
// The Dispatcher fans a pass's first buys out in fixed-size chunks. Every
// notification of a chunk runs concurrently, chunks run one after another
// with a pause in between, and Dispatch returns only once every attempt has
// finished. Failures are logged and counted, never returned.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/firstbuy/internal/core/domain"
	"github.com/vietddude/firstbuy/internal/indexing/metrics"
)

const (
	DefaultBatchSize  = 5
	DefaultBatchPause = 100 * time.Millisecond
)

// DispatcherConfig configures chunking.
type DispatcherConfig struct {
	BatchSize  int
	BatchPause time.Duration
}

// Dispatcher fans first buys out to a Notifier.
type Dispatcher struct {
	notifier   Notifier
	batchSize  int
	batchPause time.Duration
	log        *slog.Logger
}

// NewDispatcher creates a dispatcher for n.
func NewDispatcher(n Notifier, cfg DispatcherConfig) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchPause < 0 {
		cfg.BatchPause = 0
	}
	return &Dispatcher{
		notifier:   n,
		batchSize:  cfg.BatchSize,
		batchPause: cfg.BatchPause,
		log:        slog.Default().With("notifier", n.Name()),
	}
}

// DispatchResult summarizes one Dispatch call.
type DispatchResult struct {
	Sent   int
	Failed int
}

// Dispatch attempts every buy and waits for all attempts.
// A cancelled ctx abandons chunks that have not started; they count as failed.
func (d *Dispatcher) Dispatch(ctx context.Context, buys []domain.FirstBuy) DispatchResult {
	var res DispatchResult
	name := d.notifier.Name()

	for start := 0; start < len(buys); start += d.batchSize {
		if start > 0 && d.batchPause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.batchPause):
			}
		}
		if ctx.Err() != nil {
			abandoned := len(buys) - start
			res.Failed += abandoned
			metrics.NotificationsTotal.WithLabelValues(name, "abandoned").Add(float64(abandoned))
			d.log.Warn("notifications abandoned", "count", abandoned, "error", ctx.Err())
			break
		}

		end := min(start+d.batchSize, len(buys))
		chunk := buys[start:end]
		errs := make([]error, len(chunk))

		var g errgroup.Group
		for i := range chunk {
			g.Go(func() error {
				errs[i] = d.notifier.Notify(ctx, chunk[i])
				return nil
			})
		}
		_ = g.Wait()

		for i, err := range errs {
			if err != nil {
				res.Failed++
				metrics.NotificationsTotal.WithLabelValues(name, "failed").Inc()
				d.log.Error("notify failed",
					"tx", chunk[i].Transaction.Hash,
					"subject", chunk[i].Call.Subject,
					"error", err,
				)
				continue
			}
			res.Sent++
			metrics.NotificationsTotal.WithLabelValues(name, "sent").Inc()
		}
	}
	return res
}
