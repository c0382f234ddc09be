package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// DefaultStartBlock is the cursor used when start_block is absent.
const DefaultStartBlock uint64 = 2430439

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Chain.Name == "" {
		cfg.Chain.Name = "node"
	}
	if cfg.Chain.Timeout == 0 {
		cfg.Chain.Timeout = 30 * time.Second
	}
	if cfg.Chain.BatchSize == 0 {
		cfg.Chain.BatchSize = 950
	}
	if cfg.Chain.BatchConcurrency == 0 {
		cfg.Chain.BatchConcurrency = 1
	}
	if cfg.Chain.ExplorerURL == "" {
		cfg.Chain.ExplorerURL = "https://basescan.org"
	}

	if cfg.Contract.Address == "" {
		cfg.Contract.Address = "0xCF205808Ed36593aa40a44F10c7f7C2F67d4A4d4"
	}
	if cfg.Contract.MethodSignature == "" {
		cfg.Contract.MethodSignature = "buyShares(address,uint256)"
	}

	if cfg.Sync.WindowSize == 0 {
		cfg.Sync.WindowSize = 100
	}
	if cfg.Sync.CatchupThreshold == 0 {
		cfg.Sync.CatchupThreshold = 10000
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 500 * time.Millisecond
	}
	if cfg.Sync.StartBlock == nil {
		start := DefaultStartBlock
		cfg.Sync.StartBlock = &start
	}
	if cfg.Sync.Staleness == 0 {
		cfg.Sync.Staleness = 5 * time.Minute
	}

	if cfg.Checkpoint.Backend == "" {
		switch {
		case cfg.Redis.URL != "":
			cfg.Checkpoint.Backend = BackendRedis
		case cfg.Database.URL != "":
			cfg.Checkpoint.Backend = BackendPostgres
		default:
			cfg.Checkpoint.Backend = BackendMemory
		}
	}
	if cfg.Checkpoint.Namespace == "" {
		cfg.Checkpoint.Namespace = "ft_sniper"
	}
	if cfg.Checkpoint.DefaultExternalID == 0 {
		cfg.Checkpoint.DefaultExternalID = 11
	}

	if cfg.Notifier.BatchSize == 0 {
		cfg.Notifier.BatchSize = 5
	}
	if cfg.Notifier.BatchPause == 0 {
		cfg.Notifier.BatchPause = 100 * time.Millisecond
	}
	if cfg.Notifier.Discord.Timeout == 0 {
		cfg.Notifier.Discord.Timeout = 10 * time.Second
	}
	if cfg.Notifier.Discord.Retries == 0 {
		cfg.Notifier.Discord.Retries = 3
	}
}

// Validate checks the fields the service cannot run without.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Chain.RPCURL == "" {
		errs = append(errs, errors.New("chain.rpc_url is required"))
	}
	if !common.IsHexAddress(c.Contract.Address) {
		errs = append(errs, fmt.Errorf("contract.address %q is not a hex address", c.Contract.Address))
	}
	if c.Chain.BatchSize < 0 || c.Chain.BatchConcurrency < 0 {
		errs = append(errs, errors.New("chain.batch_size and chain.batch_concurrency must be positive"))
	}

	switch strings.ToLower(c.Checkpoint.Backend) {
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis checkpoint backend"))
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres checkpoint backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint.backend %q", c.Checkpoint.Backend))
	}

	return errors.Join(errs...)
}
