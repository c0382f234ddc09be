package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PassesTotal tracks sync passes by outcome (ok, noop, error)
	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firstbuy_sync_passes_total",
			Help: "Total number of sync passes by outcome",
		},
		[]string{"outcome"},
	)

	// PassDuration tracks wall time of a sync pass
	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "firstbuy_sync_pass_duration_seconds",
			Help:    "Sync pass duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// BlocksScanned tracks total blocks scanned
	BlocksScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firstbuy_blocks_scanned_total",
			Help: "Total number of blocks scanned",
		},
	)

	// TransactionsScanned tracks total transactions seen in scanned blocks
	TransactionsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firstbuy_transactions_scanned_total",
			Help: "Total number of transactions scanned",
		},
	)

	// QualifyingTotal tracks first-buy transactions found
	QualifyingTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firstbuy_qualifying_transactions_total",
			Help: "Total number of qualifying first-buy transactions",
		},
	)

	// DecodeSkipsTotal tracks candidates skipped due to malformed calldata
	DecodeSkipsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firstbuy_decode_skips_total",
			Help: "Total number of candidate transactions skipped on malformed calldata",
		},
	)

	// NotificationsTotal tracks notifier deliveries by notifier and outcome
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firstbuy_notifications_total",
			Help: "Total number of notifications by notifier and outcome",
		},
		[]string{"notifier", "outcome"},
	)

	// CatchupClampsTotal tracks how often the catch-up clamp fired
	CatchupClampsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firstbuy_catchup_clamps_total",
			Help: "Total number of catch-up clamps applied",
		},
	)

	// RPCCallsTotal tracks RPC calls per provider and method
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firstbuy_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"provider", "method"},
	)

	// RPCErrorsTotal tracks RPC errors per provider
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firstbuy_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"provider", "error_type"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "firstbuy_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "method"},
	)

	// ChainLatestBlock tracks the latest block height of the chain
	ChainLatestBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firstbuy_chain_latest_block",
			Help: "Latest block height of the chain",
		},
	)

	// SyncedBlock tracks the persisted sync cursor
	SyncedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firstbuy_synced_block",
			Help: "Block height of the persisted sync cursor",
		},
	)

	// DBConnectionPoolUsage tracks in-use Postgres connections as a percent of the pool limit
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firstbuy_db_connection_pool_usage_percent",
			Help: "In-use connections as a percentage of the pool limit",
		},
	)
)
