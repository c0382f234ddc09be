// Package health provides system health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/firstbuy/internal/infra/rpc"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// SyncHealth contains health metrics for the block syncer.
type SyncHealth struct {
	Status              SystemStatus `json:"status"`
	State               string       `json:"state"`
	SyncedBlock         uint64       `json:"synced_block"`
	ChainHead           uint64       `json:"chain_head"`
	BlockLag            uint64       `json:"block_lag"`
	BlocksPerSecond     float64      `json:"blocks_per_second"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	LastError           string       `json:"last_error,omitempty"`
	LastSuccessAt       *time.Time   `json:"last_success_at,omitempty"`
	QualifyingTotal     uint64       `json:"qualifying_total"`
}

// DependencyHealth is the result of pinging one backing service.
type DependencyHealth struct {
	Status SystemStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus                `json:"system_status"`
	Sync         SyncHealth                  `json:"sync"`
	RPC          *rpc.HealthStatus           `json:"rpc,omitempty"`
	Dependencies map[string]DependencyHealth `json:"dependencies,omitempty"`
	CheckedAt    time.Time                   `json:"checked_at"`
}

// worst returns the more severe of a and b.
func worst(a, b SystemStatus) SystemStatus {
	rank := func(s SystemStatus) int {
		switch s {
		case StatusCritical:
			return 2
		case StatusDegraded:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
