package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/firstbuy/internal/core/config"
	"github.com/vietddude/firstbuy/internal/core/cursor"
	"github.com/vietddude/firstbuy/internal/indexing/health"
	redisclient "github.com/vietddude/firstbuy/internal/infra/redis"
	"github.com/vietddude/firstbuy/internal/infra/storage"
	"github.com/vietddude/firstbuy/internal/infra/storage/memory"
	"github.com/vietddude/firstbuy/internal/infra/storage/postgres"
)

// Checkpoint is an opened checkpoint backend.
type Checkpoint struct {
	Store *cursor.Store
	Redis *redisclient.Client
	DB    *postgres.DB
}

// OpenCheckpoint connects the configured backend. Postgres is migrated on open.
func OpenCheckpoint(ctx context.Context, cfg *config.AppConfig) (*Checkpoint, error) {
	cp := &Checkpoint{}

	var repo storage.CheckpointRepository
	switch cfg.Checkpoint.Backend {
	case config.BackendRedis:
		client, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		cp.Redis = client
		repo = redisclient.NewCheckpointRepo(client)
		slog.Info("Using Redis checkpoint storage")

	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		cp.DB = db
		repo = postgres.NewCheckpointRepo(db)
		slog.Info("Using PostgreSQL checkpoint storage")

	case config.BackendMemory:
		repo = memory.NewCheckpointRepo()
		slog.Warn("Using Memory checkpoint storage, progress is lost on restart")

	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Checkpoint.Backend)
	}

	cp.Store = cursor.NewStore(repo, cursor.Options{
		Namespace:         cfg.Checkpoint.Namespace,
		DefaultBlock:      *cfg.Sync.StartBlock,
		DefaultExternalID: cfg.Checkpoint.DefaultExternalID,
	})
	return cp, nil
}

// Pingers returns the backing services for health checks.
func (c *Checkpoint) Pingers() map[string]health.Pinger {
	deps := make(map[string]health.Pinger)
	if c.Redis != nil {
		deps["redis"] = c.Redis
	}
	if c.DB != nil {
		deps["postgres"] = c.DB
	}
	return deps
}

// Close releases the backend connection.
func (c *Checkpoint) Close() error {
	if c.Redis != nil {
		return c.Redis.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
