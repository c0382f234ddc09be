package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/firstbuy/internal/indexing/syncer"
	"github.com/vietddude/firstbuy/internal/infra/rpc"
)

const (
	DegradedFailures = 3
	CriticalFailures = 10
	DefaultStaleness = 5 * time.Minute
	checkInterval    = 10 * time.Second
)

// SyncStatusProvider exposes the syncer's state.
type SyncStatusProvider interface {
	GetStatus() syncer.Status
	WindowSize() uint64
}

// RPCHealthProvider exposes the node client's health.
type RPCHealthProvider interface {
	Health() rpc.HealthStatus
}

// Pinger checks a backing service.
type Pinger interface {
	Health(ctx context.Context) error
}

// Config configures the monitor.
type Config struct {
	// Staleness is how long without a successful pass before the status is critical.
	Staleness time.Duration
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	sync      SyncStatusProvider
	rpc       RPCHealthProvider
	deps      map[string]Pinger
	staleness time.Duration
	startedAt time.Time

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport HealthReport
	now        func() time.Time
}

// NewMonitor creates a new health monitor. rpcHealth and deps may be nil.
func NewMonitor(s SyncStatusProvider, rpcHealth RPCHealthProvider, deps map[string]Pinger, cfg Config) *Monitor {
	if cfg.Staleness <= 0 {
		cfg.Staleness = DefaultStaleness
	}
	return &Monitor{
		sync:      s,
		rpc:       rpcHealth,
		deps:      deps,
		staleness: cfg.Staleness,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// CheckHealth builds a report. Dependency pings are rate limited to one
// round per checkInterval; the sync section is always fresh.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	report := HealthReport{
		Sync:      m.evaluateSync(now),
		CheckedAt: now,
	}
	report.SystemStatus = report.Sync.Status

	if m.rpc != nil {
		h := m.rpc.Health()
		report.RPC = &h
	}

	if len(m.deps) > 0 {
		if now.Sub(m.lastCheck) < checkInterval && m.lastReport.Dependencies != nil {
			report.Dependencies = m.lastReport.Dependencies
		} else {
			report.Dependencies = m.pingDependencies(ctx)
			m.lastCheck = now
		}
		for _, d := range report.Dependencies {
			report.SystemStatus = worst(report.SystemStatus, d.Status)
		}
	}

	m.lastReport = report
	return report
}

func (m *Monitor) evaluateSync(now time.Time) SyncHealth {
	st := m.sync.GetStatus()
	h := SyncHealth{
		Status:              StatusHealthy,
		State:               string(st.State),
		SyncedBlock:         st.SyncedBlock,
		ChainHead:           st.ChainHead,
		BlockLag:            st.Lag,
		BlocksPerSecond:     st.BlocksPerSecond,
		ConsecutiveFailures: st.ConsecutiveFailures,
		LastError:           st.LastError,
		QualifyingTotal:     st.QualifyingTotal,
	}
	if !st.LastSuccessAt.IsZero() {
		t := st.LastSuccessAt
		h.LastSuccessAt = &t
	}

	// Before the first success, staleness counts from startup.
	lastGood := st.LastSuccessAt
	if lastGood.IsZero() {
		lastGood = m.startedAt
	}

	switch {
	case st.ConsecutiveFailures >= CriticalFailures || now.Sub(lastGood) > m.staleness:
		h.Status = StatusCritical
	case st.ConsecutiveFailures >= DegradedFailures || st.Lag > 2*m.sync.WindowSize():
		h.Status = StatusDegraded
	}
	return h
}

func (m *Monitor) pingDependencies(ctx context.Context) map[string]DependencyHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out := make(map[string]DependencyHealth, len(m.deps))
	for name, p := range m.deps {
		if err := p.Health(ctx); err != nil {
			out[name] = DependencyHealth{Status: StatusCritical, Error: err.Error()}
			continue
		}
		out[name] = DependencyHealth{Status: StatusHealthy}
	}
	return out
}
