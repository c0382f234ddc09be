package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/firstbuy/internal/core/cursor"
	"github.com/vietddude/firstbuy/internal/core/domain"
	"github.com/vietddude/firstbuy/internal/indexing/decoder"
	"github.com/vietddude/firstbuy/internal/indexing/metrics"
)

// PassResult summarizes one pass.
type PassResult struct {
	ID           string
	Head         uint64
	Range        domain.BlockRange
	Clamped      bool
	Blocks       int
	Transactions int
	Skipped      int
	Qualifying   []domain.FirstBuy
	Notified     int
	NotifyFailed int
}

// RunPass executes one sync pass. A returned error leaves the persisted cursor
// where it was, except for the checkpoint written by the catch-up clamp.
func (s *Syncer) RunPass(ctx context.Context) (PassResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return PassResult{}, ErrPassInProgress
	}
	defer s.running.Store(false)

	started := time.Now()
	res := PassResult{ID: uuid.NewString()}
	log := s.log.With("pass_id", res.ID)

	err := s.runPass(ctx, log, &res)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
		s.abort(err)
		log.Error("sync pass failed",
			"start", res.Range.Start,
			"end", res.Range.End,
			"head", res.Head,
			"error", err,
		)
	case res.Range.Len() == 0:
		outcome = "noop"
	}
	metrics.PassesTotal.WithLabelValues(outcome).Inc()
	metrics.PassDuration.Observe(time.Since(started).Seconds())
	s.recordPass(res, err)

	return res, err
}

func (s *Syncer) runPass(ctx context.Context, log *slog.Logger, res *PassResult) error {
	// 1. Compute range
	s.transition(cursor.StateComputingRange, "pass started")

	head, err := s.cfg.Head.GetLatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChainHeadUnavailable, err)
	}
	res.Head = head
	metrics.ChainLatestBlock.Set(float64(head))
	s.mu.Lock()
	s.status.ChainHead = head
	s.mu.Unlock()

	start, err := s.syncedBlock(ctx)
	if err != nil {
		return fmt.Errorf("read cursor: %w", err)
	}

	// 2. Catch-up clamp. The head is persisted as-is; the cached cursor keeps
	// its old value until this pass completes.
	if head > start && head-start > s.cfg.CatchupThreshold {
		clamped := head - s.cfg.CatchupThreshold
		log.Warn("backlog exceeds catch-up threshold, skipping ahead",
			"cursor", start,
			"head", head,
			"threshold", s.cfg.CatchupThreshold,
			"clamped_start", clamped,
			"persisted", head,
		)
		metrics.CatchupClampsTotal.Inc()
		if err := s.cfg.Checkpoint.SetSyncedBlock(ctx, head); err != nil {
			return fmt.Errorf("persist catch-up checkpoint: %w", err)
		}
		start = clamped
		res.Clamped = true
	}

	// 3. Window
	if head <= start {
		s.transition(cursor.StateIdle, "at head")
		log.Debug("no new blocks", "cursor", start, "head", head)
		return nil
	}
	res.Range = domain.BlockRange{Start: start, End: start + min(head-start, s.cfg.WindowSize)}

	// 4. Fetch
	s.transition(cursor.StateFetching, res.Range.String())
	blocks, err := s.cfg.Blocks.FetchBlocks(ctx, res.Range.Heights())
	if err != nil {
		return fmt.Errorf("fetch blocks %s: %w", res.Range, err)
	}
	res.Blocks = len(blocks)

	// 5. Scan
	s.transition(cursor.StateScanning, res.Range.String())
	if err := s.scan(log, blocks, res); err != nil {
		return err
	}
	metrics.BlocksScanned.Add(float64(res.Blocks))
	metrics.TransactionsScanned.Add(float64(res.Transactions))

	// 6. Notify, then persist
	s.transition(cursor.StatePersisting, res.Range.String())
	if len(res.Qualifying) > 0 {
		d := s.cfg.Dispatcher.Dispatch(ctx, res.Qualifying)
		res.Notified, res.NotifyFailed = d.Sent, d.Failed
	}

	if err := s.cfg.Checkpoint.SetSyncedBlock(ctx, res.Range.End); err != nil {
		return err
	}
	s.synced = res.Range.End
	s.hasSynced = true
	s.transition(cursor.StateIdle, "range persisted")

	log.Info("synced range",
		"start", res.Range.Start,
		"end", res.Range.End,
		"head", head,
		"txs", res.Transactions,
		"qualifying", len(res.Qualifying),
		"skipped", res.Skipped,
	)
	return nil
}

func (s *Syncer) scan(log *slog.Logger, blocks []*domain.Block, res *PassResult) error {
	for _, block := range blocks {
		for _, tx := range block.Transactions {
			res.Transactions++

			call, outcome, err := s.cfg.Classifier.Classify(tx)
			if err != nil {
				return fmt.Errorf("block %d: %w", block.Number, err)
			}

			switch outcome {
			case decoder.OutcomeSkipped:
				res.Skipped++
				metrics.DecodeSkipsTotal.Inc()
				log.Debug("skipping malformed call", "tx", tx.Hash, "block", block.Number)
			case decoder.OutcomeQualified:
				res.Qualifying = append(res.Qualifying, domain.FirstBuy{
					Transaction:    tx,
					Call:           call,
					BlockTimestamp: block.Timestamp,
				})
				metrics.QualifyingTotal.Inc()
			}
		}
	}
	return nil
}

// syncedBlock returns the cached cursor, loading it on first use.
func (s *Syncer) syncedBlock(ctx context.Context) (uint64, error) {
	if s.hasSynced {
		return s.synced, nil
	}
	height, err := s.cfg.Checkpoint.GetSyncedBlock(ctx)
	if err != nil {
		return 0, err
	}
	s.synced = height
	s.hasSynced = true
	s.mu.Lock()
	s.status.SyncedBlock = height
	s.mu.Unlock()
	metrics.SyncedBlock.Set(float64(height))
	return height, nil
}

func (s *Syncer) recordPass(res PassResult, err error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.TotalPasses++
	s.status.LastPassAt = now
	if err != nil {
		s.status.ConsecutiveFailures++
		s.status.LastError = err.Error()
		return
	}
	s.status.ConsecutiveFailures = 0
	s.status.LastError = ""
	s.status.LastSuccessAt = now
	s.status.QualifyingTotal += uint64(len(res.Qualifying))
	if res.Range.Len() > 0 {
		s.status.SyncedBlock = res.Range.End
		metrics.SyncedBlock.Set(float64(res.Range.End))
		s.metrics.RecordBlock(res.Range.End, now)
	}
}
