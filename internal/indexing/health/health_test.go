package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/firstbuy/internal/indexing/syncer"
	"github.com/vietddude/firstbuy/internal/infra/rpc"
)

// =============================================================================
// Mocks
// =============================================================================

type stubSyncer struct {
	status syncer.Status
	window uint64
}

func (s *stubSyncer) GetStatus() syncer.Status { return s.status }
func (s *stubSyncer) WindowSize() uint64       { return s.window }

type stubRPC struct{}

func (stubRPC) Health() rpc.HealthStatus { return rpc.HealthStatus{Available: true} }

type stubPinger struct {
	err   error
	calls int
}

func (p *stubPinger) Health(ctx context.Context) error {
	p.calls++
	return p.err
}

func newMonitor(st syncer.Status, deps map[string]Pinger) *Monitor {
	return NewMonitor(&stubSyncer{status: st, window: 100}, stubRPC{}, deps, Config{Staleness: time.Minute})
}

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_Status(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		status syncer.Status
		want   SystemStatus
	}{
		{"healthy", syncer.Status{Lag: 5, LastSuccessAt: now}, StatusHealthy},
		{"lag within two windows", syncer.Status{Lag: 200, LastSuccessAt: now}, StatusHealthy},
		{"lag beyond two windows", syncer.Status{Lag: 201, LastSuccessAt: now}, StatusDegraded},
		{"failing passes", syncer.Status{ConsecutiveFailures: 3, LastSuccessAt: now}, StatusDegraded},
		{"many failing passes", syncer.Status{ConsecutiveFailures: 10, LastSuccessAt: now}, StatusCritical},
		{"stale", syncer.Status{LastSuccessAt: now.Add(-2 * time.Minute)}, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := newMonitor(tt.status, nil).CheckHealth(context.Background())
			if report.SystemStatus != tt.want {
				t.Errorf("expected %s, got %s", tt.want, report.SystemStatus)
			}
			if report.RPC == nil || !report.RPC.Available {
				t.Error("expected rpc health in report")
			}
		})
	}
}

func TestMonitor_StalenessFromStartup(t *testing.T) {
	m := newMonitor(syncer.Status{}, nil)
	if got := m.CheckHealth(context.Background()).SystemStatus; got != StatusHealthy {
		t.Errorf("expected healthy right after startup, got %s", got)
	}

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if got := m.CheckHealth(context.Background()).SystemStatus; got != StatusCritical {
		t.Errorf("expected critical without any success, got %s", got)
	}
}

func TestMonitor_Dependencies(t *testing.T) {
	redis := &stubPinger{err: errors.New("connection refused")}
	m := newMonitor(syncer.Status{LastSuccessAt: time.Now()}, map[string]Pinger{"redis": redis})

	report := m.CheckHealth(context.Background())
	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
	if report.Dependencies["redis"].Error == "" {
		t.Error("expected dependency error in report")
	}

	// Pings are cached between checks.
	m.CheckHealth(context.Background())
	if redis.calls != 1 {
		t.Errorf("expected 1 ping, got %d", redis.calls)
	}
}

func TestServer_Endpoints(t *testing.T) {
	healthy := NewServer(newMonitor(syncer.Status{SyncedBlock: 42, LastSuccessAt: time.Now()}, nil), 0)
	critical := NewServer(newMonitor(syncer.Status{ConsecutiveFailures: 20}, nil), 0)

	tests := []struct {
		name     string
		server   *Server
		path     string
		wantCode int
	}{
		{"healthy summary", healthy, "/health", http.StatusOK},
		{"healthy detailed", healthy, "/health/detailed", http.StatusOK},
		{"critical summary", critical, "/health", http.StatusServiceUnavailable},
		{"critical detailed", critical, "/health/detailed", http.StatusServiceUnavailable},
		{"metrics", healthy, "/metrics", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	healthy.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Sync.SyncedBlock != 42 {
		t.Errorf("expected synced block 42, got %d", report.Sync.SyncedBlock)
	}
}
