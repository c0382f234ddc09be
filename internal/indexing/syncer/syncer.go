// Package syncer advances the block cursor one bounded range at a time.
//
// A pass reads the chain head and the synced cursor, clamps the start when the
// backlog exceeds the catch-up threshold, fetches at most WindowSize blocks,
// classifies every transaction and hands first buys to the dispatcher. The
// cursor is persisted only after the whole range is processed.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vietddude/firstbuy/internal/core/cursor"
	"github.com/vietddude/firstbuy/internal/core/domain"
	"github.com/vietddude/firstbuy/internal/indexing/decoder"
	"github.com/vietddude/firstbuy/internal/indexing/notifier"
)

const (
	DefaultWindowSize       = 100
	DefaultCatchupThreshold = 10000
)

var (
	// ErrChainHeadUnavailable means the head query failed and no range could be computed.
	ErrChainHeadUnavailable = errors.New("chain head unavailable")
	// ErrPassInProgress is returned when RunPass is called while another pass runs.
	ErrPassInProgress = errors.New("sync pass already in progress")
)

// HeadSource returns the chain head height.
type HeadSource interface {
	GetLatestBlock(ctx context.Context) (uint64, error)
}

// BlockFetcher returns full blocks for heights, in request order.
type BlockFetcher interface {
	FetchBlocks(ctx context.Context, heights []uint64) ([]*domain.Block, error)
}

// CheckpointStore reads and writes the synced block height.
type CheckpointStore interface {
	GetSyncedBlock(ctx context.Context) (uint64, error)
	SetSyncedBlock(ctx context.Context, height uint64) error
}

// Classifier decides whether a transaction is a first buy.
type Classifier interface {
	Classify(tx *domain.Transaction) (domain.BuyCall, decoder.Outcome, error)
}

// Dispatcher delivers first buys and waits for every attempt.
type Dispatcher interface {
	Dispatch(ctx context.Context, buys []domain.FirstBuy) notifier.DispatchResult
}

// Config holds syncer dependencies and tuning.
type Config struct {
	Head       HeadSource
	Blocks     BlockFetcher
	Checkpoint CheckpointStore
	Classifier Classifier
	Dispatcher Dispatcher
	Logger     *slog.Logger

	WindowSize       uint64
	CatchupThreshold uint64
}

// Status is a point-in-time view of the syncer.
type Status struct {
	State               cursor.State
	SyncedBlock         uint64
	ChainHead           uint64
	Lag                 uint64
	BlocksPerSecond     float64
	LastPassAt          time.Time
	LastSuccessAt       time.Time
	LastAbortAt         *time.Time
	Aborts              int
	LastError           string
	ConsecutiveFailures int
	TotalPasses         uint64
	QualifyingTotal     uint64
}

// Syncer runs sync passes. At most one pass is in flight at a time.
type Syncer struct {
	cfg     Config
	log     *slog.Logger
	metrics *cursor.MetricsCollector
	running atomic.Bool

	// Owned by the in-flight pass. Loaded from the checkpoint store on first
	// use and replaced only after a range is persisted.
	synced    uint64
	hasSynced bool
	state     cursor.State

	mu     sync.RWMutex
	status Status
}

// New creates a syncer.
func New(cfg Config) *Syncer {
	if cfg.WindowSize == 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.CatchupThreshold == 0 {
		cfg.CatchupThreshold = DefaultCatchupThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Syncer{
		cfg:     cfg,
		log:     cfg.Logger.With("component", "syncer"),
		metrics: cursor.NewMetricsCollector(100),
		state:   cursor.StateIdle,
		status:  Status{State: cursor.StateIdle},
	}
}

// WindowSize returns the per-pass block cap.
func (s *Syncer) WindowSize() uint64 {
	return s.cfg.WindowSize
}

// GetStatus returns the current status.
func (s *Syncer) GetStatus() Status {
	m := s.metrics.GetMetrics()

	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()

	st.BlocksPerSecond = m.BlocksPerSecond
	st.LastAbortAt = m.LastAbortAt
	st.Aborts = m.Aborts
	if st.ChainHead > st.SyncedBlock {
		st.Lag = st.ChainHead - st.SyncedBlock
	}
	return st
}

// Transitions returns the recent state changes, oldest first.
func (s *Syncer) Transitions() []cursor.Transition {
	return s.metrics.GetMetrics().StateHistory
}

func (s *Syncer) transition(to cursor.State, reason string) {
	t := cursor.NewTransition(s.state, to, reason)
	if !t.IsValid() {
		s.log.Error("invalid state transition", "from", t.From, "to", t.To, "reason", reason)
	}
	s.record(t)
}

// abort drops a failed pass back to idle from whatever state it reached.
func (s *Syncer) abort(err error) {
	s.record(cursor.NewAbort(s.state, err.Error()))
}

func (s *Syncer) record(t cursor.Transition) {
	s.state = t.To
	s.metrics.RecordTransition(t)

	s.mu.Lock()
	s.status.State = t.To
	s.mu.Unlock()
}
