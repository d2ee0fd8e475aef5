package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is reported by /health.
type Status struct {
	Status  string    `json:"status"`
	Runs    int64     `json:"runs"`
	LastRun time.Time `json:"last_run,omitempty"`
}

// Server exposes /metrics and /health.
type Server struct {
	addr    string
	server  *http.Server
	ln      net.Listener
	runs    atomic.Int64
	lastRun atomic.Int64
}

func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

// RecordRun updates the health counters after a run finishes.
func (s *Server) RecordRun(at time.Time) {
	s.runs.Add(1)
	s.lastRun.Store(at.UnixNano())
}

func (s *Server) status() Status {
	st := Status{Status: "up", Runs: s.runs.Load()}
	if ns := s.lastRun.Load(); ns != 0 {
		st.LastRun = time.Unix(0, ns).UTC()
	}
	return st
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.status())
	})
	return mux
}

// Start listens synchronously so address errors surface, then serves in
// the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	slog.Info("observability server starting", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
