package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the delay between the end of one pass and the start of the next.
const DefaultInterval = 500 * time.Millisecond

// Passer runs one sync pass.
type Passer interface {
	RunPass(ctx context.Context) (PassResult, error)
}

// Driver runs passes back to back with a fixed delay, whatever their outcome.
type Driver struct {
	passer   Passer
	interval time.Duration
	log      *slog.Logger

	mu         sync.Mutex
	stop       chan struct{} // closed to end the loop
	done       chan struct{} // closed when Start returns
	cancelPass context.CancelFunc
}

// NewDriver creates a driver for p.
func NewDriver(p Passer, interval time.Duration, log *slog.Logger) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Driver{
		passer:   p,
		interval: interval,
		log:      log.With("component", "driver"),
	}
}

// Start runs passes until ctx is cancelled or Stop is called.
// Passes do not observe ctx cancellation, so the one in flight when the loop
// ends can still persist its range; Stop bounds how long it may take.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.done != nil {
		d.mu.Unlock()
		return fmt.Errorf("driver already running")
	}
	stop, done := make(chan struct{}), make(chan struct{})
	passCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.stop, d.done, d.cancelPass = stop, done, cancel
	d.mu.Unlock()

	defer func() {
		cancel()
		d.mu.Lock()
		d.stop, d.done, d.cancelPass = nil, nil, nil
		d.mu.Unlock()
		close(done)
	}()

	d.log.Info("sync loop started", "interval", d.interval)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("sync loop stopped", "reason", ctx.Err())
			return nil
		case <-stop:
			d.log.Info("sync loop stopped", "reason", "stop requested")
			return nil
		case <-timer.C:
			// Errors are logged by the pass itself.
			_, _ = d.passer.RunPass(passCtx)
			timer.Reset(d.interval)
		}
	}
}

// Stop ends the loop and waits for the pass in flight. If ctx expires first
// the pass is cancelled, waited for, and ctx's error is returned.
// Stop is a no-op when the loop is not running.
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	stop, done, cancel := d.stop, d.done, d.cancelPass
	if stop != nil {
		select {
		case <-stop:
		default:
			close(stop)
		}
	}
	d.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.log.Warn("shutdown deadline reached, cancelling the pass in flight")
		cancel()
		<-done
		return fmt.Errorf("pass cancelled at shutdown: %w", ctx.Err())
	}
}

// Running reports whether the loop is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done != nil
}
