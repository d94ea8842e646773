// Package server wires the access-control engine, the static site
// handler, and the operational endpoints into one HTTP server with the
// full middleware stack applied.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pforte-dev/pforte/pkg/account"
	"github.com/pforte-dev/pforte/pkg/auth"
	"github.com/pforte-dev/pforte/pkg/authz"
	"github.com/pforte-dev/pforte/pkg/config"
	"github.com/pforte-dev/pforte/pkg/observability"
	"github.com/pforte-dev/pforte/pkg/static"
	"github.com/pforte-dev/pforte/pkg/status"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Server is the assembled pforte server.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	gate       *auth.Gate
	engine     *authz.Engine
	files      *static.Handler
}

// New loads the credential store and builds the server. A credential
// file that exists but cannot be read fails construction: the server
// must not start with an unknown credential state.
func New(cfg *config.Config) (*Server, error) {
	store, err := auth.Load(cfg.Auth.PasswdFile, cfg.Auth.MaxTrackedNames, cfg.Auth.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("loading credential store: %w", err)
	}
	gate := auth.NewGate(store, cfg.Auth.ProtectedMarker)
	engine := authz.New(cfg.Site.Root, cfg.Auth.AccessFile, gate)

	intake, err := account.NewIntake(cfg.Account.PendingFile, cfg.Account.MaxPending)
	if err != nil {
		return nil, fmt.Errorf("initializing account intake: %w", err)
	}

	// The server's own control files must never be served as content.
	files := static.New(cfg.Site.Root, cfg.Site.Index, cfg.Site.Listing,
		cfg.Auth.AccessFile,
		filepath.Base(cfg.Auth.PasswdFile),
		filepath.Base(cfg.Account.PendingFile),
	)

	recorder := status.NewRecorder()

	s := &Server{
		cfg:    cfg,
		gate:   gate,
		engine: engine,
		files:  files,
	}

	// getOnly emulates the "GET /path" ServeMux patterns of Go 1.22+
	// on the Go 1.21 toolchain: same routes, 405 for other methods.
	getOnly := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
				return
			}
			h.ServeHTTP(w, r)
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", getOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})))
	if cfg.Observability.Metrics.Enabled {
		mux.Handle(cfg.Observability.Metrics.Path, getOnly(promhttp.Handler()))
	}
	mux.Handle("/status", getOnly(recorder.Handler()))
	mux.Handle("/account", intake)
	mux.Handle("/", s.guard(files))

	handler := Recovery(RequestID(Logging(
		observability.MetricsMiddleware(recorder.Middleware(mux)),
	)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s, nil
}

// Handler exposes the fully wired handler chain. Used for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the server and blocks until a shutdown signal
// (SIGINT or SIGTERM) is received, then shuts down gracefully. The
// listener speaks TLS when a certificate pair is configured.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		tls := s.cfg.Server.TLS
		var err error
		if tls.CertFile != "" {
			slog.Info("server starting", "addr", s.httpServer.Addr, "tls", true)
			err = s.httpServer.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			slog.Info("server starting", "addr", s.httpServer.Addr, "tls", false)
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
