package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bfinder/bfinder/internal/api/handlers"
	"github.com/bfinder/bfinder/internal/scan"
	"github.com/bfinder/bfinder/internal/scheduler"
)

// Server holds the HTTP server and all handler dependencies.
type Server struct {
	addr string
	srv  *http.Server
}

// New wires all routes and returns a Server ready to Run.
func New(
	addr string,
	db *sql.DB,
	mgr *scan.Manager,
	sched *scheduler.Scheduler,
	version string,
) *Server {
	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: Router(db, mgr, sched, version)},
	}
}

// Router builds the chi router. Exposed separately so tests can drive the
// API without binding a socket.
func Router(db *sql.DB, mgr *scan.Manager, sched *scheduler.Scheduler, version string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	statusH := &handlers.StatusHandler{DB: db, Manager: mgr, Sched: sched, Version: version}
	scansH := &handlers.ScansHandler{DB: db, Manager: mgr}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", statusH.ServeHTTP)

		r.Post("/scans", scansH.Create)
		r.Get("/scans", scansH.List)
		r.Get("/scans/{id}", scansH.Get)
		r.Delete("/scans/current", scansH.Cancel)
	})

	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		return s.srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
