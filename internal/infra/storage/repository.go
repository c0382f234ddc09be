package storage

import (
	"context"
)

// CheckpointRepository persists named integer checkpoints.
type CheckpointRepository interface {
	// Get returns the stored value. found is false when the key was never written.
	Get(ctx context.Context, key string) (value uint64, found bool, err error)

	// Set overwrites the value. A nil error means the write is confirmed.
	Set(ctx context.Context, key string, value uint64) error
}
