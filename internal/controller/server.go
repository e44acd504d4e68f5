// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"net/http"
	"time"

	"marketcap/internal/controller/handlers"
	"marketcap/internal/controller/middleware"
)

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// Options carries the wiring the route table needs.
type Options struct {
	Handlers       *handlers.Handlers
	InternalToken  string
	MetricsHandler http.Handler
	ReadRPS        float64
	ReadBurst      int
}

// New creates a new controller server.
func New(addr string, opts Options) *Server {
	h := opts.Handlers
	internalMW := middleware.RequireInternalAuth(opts.InternalToken)
	readMW := middleware.RateLimitMiddleware(opts.ReadRPS, opts.ReadBurst)

	mux := http.NewServeMux()

	// Run triggering is restricted to the scheduler's shared token.
	mux.Handle("POST /runs", internalMW(http.HandlerFunc(h.TriggerRun)))

	// Public read apis
	mux.Handle("GET /runs/{id}", readMW(http.HandlerFunc(h.GetRun)))
	mux.Handle("GET /companies/{slug}", readMW(http.HandlerFunc(h.GetCompany)))
	mux.Handle("GET /sources", readMW(http.HandlerFunc(h.ListSources)))

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
			// Run triggering is synchronous and can legitimately take the
			// whole run budget; reads stay on the default timeouts.
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Minute,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
