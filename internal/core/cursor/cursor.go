// Package cursor persists the sync position of the block syncer.
//
// The cursor is a single height: the end of the last block range that was
// fully scanned. It is stored under a namespaced key so several deployments
// can share one Redis or Postgres instance.
//
//	store := cursor.NewStore(repo, cursor.Options{
//	    Namespace:         "ft_sniper",
//	    DefaultBlock:      2430439,
//	    DefaultExternalID: 11,
//	})
//
//	start, _ := store.GetSyncedBlock(ctx)
//	// ... scan [start, end) ...
//	store.SetSyncedBlock(ctx, end)
//
// # Package Structure
//
//   - store.go   - Store over a storage.CheckpointRepository
//   - state.go   - Pass state machine and valid transitions
//   - metrics.go - Throughput metrics (blocks/sec, transition history)
package cursor

import (
	"errors"
	"fmt"
)

// ErrStorage is returned when the checkpoint backend could not be read.
// A read failure is never replaced by the default value.
var ErrStorage = errors.New("checkpoint storage unavailable")

// PersistenceError is returned when a checkpoint write could not be confirmed.
type PersistenceError struct {
	Key   string
	Value uint64
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s=%d: %v", e.Key, e.Value, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
