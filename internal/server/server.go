// Package server exposes the fact-check service over HTTP
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/safeprotest/factcheck/internal/factcheck"
	"github.com/safeprotest/factcheck/internal/model"
	"github.com/safeprotest/factcheck/internal/worker"
)

// Server is the HTTP API
type Server struct {
	svc     *factcheck.Service
	cfg     model.ServerConfig
	auth    *Authenticator
	limiter *worker.Limiter
	metrics *Metrics
	logger  *slog.Logger
	router  *mux.Router
}

// New builds the API around svc
func New(svc *factcheck.Service, cfg model.ServerConfig, logger *slog.Logger) *Server {
	s := &Server{
		svc:     svc,
		cfg:     cfg,
		auth:    NewAuthenticator(cfg.JWTSecret, identityHeader(cfg)),
		limiter: worker.NewLimiter(cfg.VotesPerSecond, cfg.VoteBurst),
		metrics: NewMetrics(),
		logger:  logger,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.metrics.middleware, s.timeout)

	api := r.PathPrefix("/api/fact-check").Subrouter()
	api.HandleFunc("/evaluate", s.handleEvaluate).Methods(http.MethodPost)
	api.HandleFunc("", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/{id}/votes", s.handleVote).Methods(http.MethodPost)
	api.HandleFunc("/{id}/votes", s.handleListVotes).Methods(http.MethodGet)
	api.HandleFunc("/{id}/recheck", s.handleRecheck).Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.cfg.EnableMetrics {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Authenticator returns the identity resolver, for issuing tokens
func (s *Server) Authenticator() *Authenticator {
	return s.auth
}

// timeout bounds each request's context
func (s *Server) timeout(next http.Handler) http.Handler {
	if s.cfg.RequestTimeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to the shutdown timeout
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
