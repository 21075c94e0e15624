// Package control serves the supervisor's local admin HTTP API.
package control

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/core-tools/hsu-gateway/pkg/logging"
	"github.com/core-tools/hsu-gateway/pkg/supervisor"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Gateway is the part of a service handle the admin API reads and drives.
type Gateway interface {
	Snapshot() supervisor.Snapshot
	State() supervisor.ProcessState
	Restart(ctx context.Context) error
}

// GatewaySource returns the current gateway, or nil before it has started.
type GatewaySource func() Gateway

type Server struct {
	addr     string
	source   GatewaySource
	gatherer prometheus.Gatherer
	logger   logging.Logger
}

func NewServer(addr string, source GatewaySource, gatherer prometheus.Gatherer, logger logging.Logger) *Server {
	return &Server{
		addr:     addr,
		source:   source,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Handler builds the router:
//
//	GET  /healthz   200 while the gateway is healthy, 503 otherwise
//	GET  /status    JSON snapshot of the service handle
//	GET  /metrics   Prometheus exposition
//	POST /restart   graceful restart on the same port
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/restart", s.handleRestart)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	gw := s.source()
	if gw == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"state": "not_started"})
		return
	}
	state := gw.State()
	status := http.StatusOK
	if state != supervisor.ProcessStateHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"state": string(state)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	gw := s.source()
	if gw == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "gateway not started"})
		return
	}
	writeJSON(w, http.StatusOK, gw.Snapshot())
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	gw := s.source()
	if gw == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "gateway not started"})
		return
	}
	s.logger.Infof("Restart requested via admin API, remote: %s", r.RemoteAddr)
	if err := gw.Restart(r.Context()); err != nil {
		s.logger.Errorf("Admin restart failed, error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, gw.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve listens on the configured address until ctx ends, then shuts the
// server down. It satisfies suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Infof("Admin server listening, address: %s", ln.Addr())

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnf("Admin server shutdown failed, error: %v", err)
	}
	<-errCh
	s.logger.Infof("Admin server stopped, address: %s", ln.Addr())
	return ctx.Err()
}

func (s *Server) String() string {
	return "admin:" + s.addr
}
