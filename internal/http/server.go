// Package http serves the read-only status endpoints of the bot.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bankbot/internal/log"
	"bankbot/internal/ports"
	"bankbot/internal/worker"
)

// StatusProvider exposes poller status. *worker.Poller implements it.
type StatusProvider interface {
	Status() worker.Status
}

// DeliveryLister reads the delivery journal. *storage.Journal implements it.
type DeliveryLister interface {
	RecentDeliveries(ctx context.Context, limit int) ([]ports.Delivery, error)
}

// Option configures optional server routes.
type Option func(*Server)

// WithDeliveries serves the most recent journal entries on /deliveries.
func WithDeliveries(d DeliveryLister) Option {
	return func(s *Server) { s.deliveries = d }
}

// Server is the status HTTP server.
type Server struct {
	http.Server
	status     StatusProvider
	deliveries DeliveryLister
	logger     *log.Logger
	started    time.Time

	shutdownOnce sync.Once
}

// NewServer creates a status server listening on addr.
func NewServer(addr string, status StatusProvider, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		status:  status,
		logger:  logger.WithComponent(log.ComponentStatus),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(securityHeaders)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/status", s.handleStatus)
	if s.deliveries != nil {
		r.Get("/deliveries", s.handleDeliveries)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Status server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Status server shutting down")
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// securityHeaders marks every response as non-cacheable JSON-only output.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Cache-Control", "no-store")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
