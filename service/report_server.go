// Package service serves generated report directories over HTTP
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/ethereum-optimism/infra/op-testreport/metrics"
)

var _ cliapp.Lifecycle = (*ReportServer)(nil)

// ReportServer serves the files of a report directory and a /healthz probe
type ReportServer struct {
	log     log.Logger
	dir     string
	addr    string
	metrics *metrics.Metrics

	server   *http.Server
	listener net.Listener
	running  atomic.Bool
}

// New creates a server for dir listening on addr (host:port)
func New(logger log.Logger, dir, addr string, m *metrics.Metrics) *ReportServer {
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}
	if m == nil {
		m = metrics.New(nil, logger)
	}
	return &ReportServer{log: logger, dir: dir, addr: addr, metrics: m}
}

// Handler routes /healthz and serves everything else from the directory
func (s *ReportServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/", http.FileServer(http.Dir(s.dir)))
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	})
	return c.Handler(mux)
}

func (s *ReportServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}

// Start listens and serves in the background. It fails when the report
// directory does not exist.
func (s *ReportServer) Start(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("report directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("report directory %s is not a directory", s.dir)
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.running.Store(true)

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Report server failed", "err", err)
			s.metrics.RecordErrorDetails("report server", err)
		}
	}()
	s.log.Info("Serving report", "dir", s.dir, "addr", s.Addr())
	return nil
}

// Addr is the address the server listens on, empty before Start
func (s *ReportServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down
func (s *ReportServer) Stop(ctx context.Context) error {
	if !s.running.Swap(false) {
		return nil
	}
	s.log.Info("Stopping report server")
	return s.server.Shutdown(ctx)
}

// Stopped implements the cliapp.Lifecycle interface
func (s *ReportServer) Stopped() bool {
	return !s.running.Load()
}
