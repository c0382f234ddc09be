package memory

import (
	"context"
	"sync"
)

// CheckpointRepo keeps checkpoints in process memory. Values are lost on restart.
type CheckpointRepo struct {
	mu     sync.RWMutex
	values map[string]uint64
}

func NewCheckpointRepo() *CheckpointRepo {
	return &CheckpointRepo{values: make(map[string]uint64)}
}

func (r *CheckpointRepo) Get(ctx context.Context, key string) (uint64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *CheckpointRepo) Set(ctx context.Context, key string, value uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}
