package config

import (
	"time"

	redisclient "github.com/vietddude/firstbuy/internal/infra/redis"
	"github.com/vietddude/firstbuy/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Logging    LoggingConfig      `yaml:"logging"`
	Chain      ChainConfig        `yaml:"chain"`
	Contract   ContractConfig     `yaml:"contract"`
	Sync       SyncConfig         `yaml:"sync"`
	Checkpoint CheckpointConfig   `yaml:"checkpoint"`
	Redis      redisclient.Config `yaml:"redis"`
	Database   postgres.Config    `yaml:"database"`
	Notifier   NotifierConfig     `yaml:"notifier"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ChainConfig holds settings for the chain node.
type ChainConfig struct {
	Name             string        `yaml:"name"`
	RPCURL           string        `yaml:"rpc_url"`
	Timeout          time.Duration `yaml:"timeout"`
	BatchSize        int           `yaml:"batch_size"`        // max requests per JSON-RPC batch
	BatchConcurrency int           `yaml:"batch_concurrency"` // sub-batches in flight
	ExplorerURL      string        `yaml:"explorer_url"`
}

// ContractConfig identifies the tracked call.
type ContractConfig struct {
	Address         string `yaml:"address"`
	MethodSignature string `yaml:"method_signature"`
	MethodSelector  string `yaml:"method_selector"` // optional, must match the signature
}

// SyncConfig tunes the sync loop.
type SyncConfig struct {
	WindowSize       uint64        `yaml:"window_size"`
	CatchupThreshold uint64        `yaml:"catchup_threshold"`
	Interval         time.Duration `yaml:"interval"`
	StartBlock       *uint64       `yaml:"start_block"`    // cursor on first run; 0 is allowed
	HeadCacheTTL     time.Duration `yaml:"head_cache_ttl"` // 0 = always query the node
	Staleness        time.Duration `yaml:"staleness"`
}

// CheckpointConfig selects the checkpoint backend.
type CheckpointConfig struct {
	Backend           string `yaml:"backend"` // redis, postgres, memory
	Namespace         string `yaml:"namespace"`
	DefaultExternalID uint64 `yaml:"default_external_id"`
}

// NotifierConfig holds delivery settings.
type NotifierConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	BatchPause    time.Duration `yaml:"batch_pause"`
	RatePerSecond int           `yaml:"rate_per_second"` // 0 = unlimited
	Discord       DiscordConfig `yaml:"discord"`
}

// DiscordConfig holds webhook settings. An empty WebhookURL selects the log notifier.
type DiscordConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	MentionID  string        `yaml:"mention_id"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
}
