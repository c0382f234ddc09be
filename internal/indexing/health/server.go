package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// summary is the body of GET /health.
type summary struct {
	Status      SystemStatus `json:"status"`
	SyncedBlock uint64       `json:"synced_block"`
	BlockLag    uint64       `json:"block_lag"`
}

// Server exposes the monitor and prometheus metrics over HTTP.
type Server struct {
	monitor *Monitor
	server  *http.Server
}

// NewServer builds the server; port 0 picks any free port on Start.
func NewServer(monitor *Monitor, port int) *Server {
	s := &Server{monitor: monitor}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleDetailed)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving requests. It returns nil after Stop.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())
	writeReport(w, report.SystemStatus, summary{
		Status:      report.SystemStatus,
		SyncedBlock: report.Sync.SyncedBlock,
		BlockLag:    report.Sync.BlockLag,
	})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())
	writeReport(w, report.SystemStatus, report)
}

// writeReport answers 503 when the system is critical.
func writeReport(w http.ResponseWriter, status SystemStatus, body any) {
	code := http.StatusOK
	if status == StatusCritical {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
