package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	getCheckpointQuery = `SELECT value FROM checkpoints WHERE key = $1`

	upsertCheckpointQuery = `
INSERT INTO checkpoints (key, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// CheckpointRepo implements storage.CheckpointRepository using PostgreSQL.
type CheckpointRepo struct {
	db *DB
}

// NewCheckpointRepo creates a new PostgreSQL checkpoint repository.
func NewCheckpointRepo(db *DB) *CheckpointRepo {
	return &CheckpointRepo{db: db}
}

// Get retrieves a checkpoint by key.
func (r *CheckpointRepo) Get(ctx context.Context, key string) (uint64, bool, error) {
	var value int64
	err := r.db.GetContext(ctx, &value, getCheckpointQuery, key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get checkpoint %s: %w", key, err)
	}
	if value < 0 {
		return 0, false, fmt.Errorf("checkpoint %s holds negative value %d", key, value)
	}
	return uint64(value), true, nil
}

// Set upserts a checkpoint.
func (r *CheckpointRepo) Set(ctx context.Context, key string, value uint64) error {
	res, err := r.db.ExecContext(ctx, upsertCheckpointQuery, key, int64(value), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to save checkpoint %s: no rows affected", key)
	}
	return nil
}
