// Package httpapi exposes shade-aware routing, segment coverage and planting candidates over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/planting"
	"github.com/UnknownOlympus/shadeway/internal/service"
	"github.com/gin-gonic/gin"
)

// ShadeService is the part of the service layer the API serves.
type ShadeService interface {
	Route(ctx context.Context, from, to service.Endpoint, alpha float64) (*service.RouteResult, error)
	Snapshot() (*service.Snapshot, error)
	PlanSnapshot(ctx context.Context, snap *service.Snapshot, params planting.Params, budget int) []planting.Candidate
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure request defaults.
type Options struct {
	Alpha    float64         // Shade preference used when a route request omits it.
	Planting planting.Params // Ranking parameters for planting queries.
	Budget   int             // Tree budget used when a planting query omits it.
}

// Server serves the routing API.
type Server struct {
	log    *slog.Logger
	shade  ShadeService
	db     Pinger // may be nil
	opts   Options
	engine *gin.Engine
}

// NewServer creates a Server and registers its routes.
func NewServer(log *slog.Logger, shade ShadeService, db Pinger, opts Options) *Server {
	srv := &Server{log: log, shade: shade, db: db, opts: opts}

	engine := gin.New()
	engine.Use(Recovery(log), Logging(log))

	engine.GET("/healthz", srv.Health)

	v1 := engine.Group("/v1")
	v1.POST("/routes", srv.Route)
	v1.GET("/coverage", srv.Coverage)
	v1.GET("/planting", srv.Planting)

	srv.engine = engine
	return srv
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	const (
		readTimeout     = 5 * time.Second
		writeTimeout    = 30 * time.Second
		shutdownTimeout = 10 * time.Second
	)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "Starting routing API", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve routing API: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down routing API: %w", err)
	}

	s.log.InfoContext(ctx, "Routing API stopped.")
	return nil
}
