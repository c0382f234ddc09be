package postgres

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/vietddude/firstbuy/internal/indexing/metrics"
)

const (
	driverPgx = "pgx"
	driverPQ  = "postgres"

	defaultMaxConns = 5
	defaultMinConns = 1

	poolStatsInterval = 15 * time.Second
)

// Config holds PostgreSQL connection configuration.
// The checkpoint store issues one query per pass, so a small pool is enough.
type Config struct {
	URL      string `yaml:"url"`
	Driver   string `yaml:"driver"` // pgx (default) or postgres (lib/pq)
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

func (c Config) driver() (string, error) {
	switch c.Driver {
	case "", driverPgx:
		return driverPgx, nil
	case driverPQ:
		return driverPQ, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// DB is the checkpoint database handle.
type DB struct {
	*sqlx.DB
}

// NewDB opens the pool and pings it once.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	driver, err := cfg.driver()
	if err != nil {
		return nil, err
	}

	conn, err := sqlx.Open(driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxConns, minConns := cfg.MaxConns, cfg.MinConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	if minConns <= 0 {
		minConns = defaultMinConns
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(min(minConns, maxConns))
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database (%s): %w", driver, err)
	}
	return &DB{DB: conn}, nil
}

// StartMetricsCollector publishes pool usage until ctx is done.
func (db *DB) StartMetricsCollector(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(poolStatsInterval)
		defer ticker.Stop()
		for {
			db.reportPoolUsage()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (db *DB) reportPoolUsage() {
	stats := db.Stats()
	if stats.MaxOpenConnections == 0 {
		return
	}
	metrics.DBConnectionPoolUsage.Set(100 * float64(stats.InUse) / float64(stats.MaxOpenConnections))
}

// Health pings the database.
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}
