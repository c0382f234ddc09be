package cursor

import (
	"context"
	"fmt"

	"github.com/vietddude/firstbuy/internal/core/domain"
	"github.com/vietddude/firstbuy/internal/infra/storage"
)

// Options configures a Store.
type Options struct {
	// Namespace prefixes every key as "<namespace>_<key>". Empty means no prefix.
	Namespace string
	// DefaultBlock is returned by GetSyncedBlock before anything was persisted.
	DefaultBlock uint64
	// DefaultExternalID is returned by GetSyncedExternalID on a miss.
	DefaultExternalID uint64
}

// Store reads and writes the two checkpoints with default-on-miss semantics.
type Store struct {
	repo storage.CheckpointRepository
	opts Options
}

// NewStore creates a checkpoint store over repo.
func NewStore(repo storage.CheckpointRepository, opts Options) *Store {
	return &Store{repo: repo, opts: opts}
}

// Key returns the backend key for a logical checkpoint name.
func (s *Store) Key(k domain.CheckpointKey) string {
	if s.opts.Namespace == "" {
		return string(k)
	}
	return s.opts.Namespace + "_" + string(k)
}

// GetSyncedBlock returns the persisted block cursor or DefaultBlock if absent.
func (s *Store) GetSyncedBlock(ctx context.Context) (uint64, error) {
	return s.get(ctx, domain.CheckpointSyncedBlock, s.opts.DefaultBlock)
}

// SetSyncedBlock persists the block cursor.
func (s *Store) SetSyncedBlock(ctx context.Context, height uint64) error {
	return s.set(ctx, domain.CheckpointSyncedBlock, height)
}

// GetSyncedExternalID returns the profile backfill cursor or DefaultExternalID.
func (s *Store) GetSyncedExternalID(ctx context.Context) (uint64, error) {
	return s.get(ctx, domain.CheckpointSyncedExternalID, s.opts.DefaultExternalID)
}

// SetSyncedExternalID persists the profile backfill cursor.
func (s *Store) SetSyncedExternalID(ctx context.Context, id uint64) error {
	return s.set(ctx, domain.CheckpointSyncedExternalID, id)
}

func (s *Store) get(ctx context.Context, k domain.CheckpointKey, def uint64) (uint64, error) {
	key := s.Key(k)
	v, found, err := s.repo.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %v", ErrStorage, key, err)
	}
	if !found {
		return def, nil
	}
	return v, nil
}

func (s *Store) set(ctx context.Context, k domain.CheckpointKey, v uint64) error {
	key := s.Key(k)
	if err := s.repo.Set(ctx, key, v); err != nil {
		return &PersistenceError{Key: key, Value: v, Err: err}
	}
	return nil
}
