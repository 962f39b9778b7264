package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/httpapi"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Refresh coverage periodically and serve the routing API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Create a context that will be canceled when an interrupt signal is received.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	api := httpapi.NewServer(a.log, a.service, a.db, httpapi.Options{
		Alpha:    a.cfg.Routing.Alpha,
		Planting: a.plantingParams(),
		Budget:   a.cfg.Planting.Budget,
	})

	a.log.InfoContext(ctx, "Application started. Press Ctrl+C to stop.", "area", a.cfg.Area)

	// Start the monitoring server in a goroutine to allow serve to listen for signals.
	go startMonitoringServer(ctx, a.log, a.reg, a.db, a.cfg.Port)

	go a.service.Run(ctx)

	err := api.ListenAndServe(ctx, a.cfg.HTTPAddr)

	a.log.InfoContext(ctx, "Shutdown signal received. Stopping application...")
	if err != nil {
		return err
	}

	a.log.InfoContext(ctx, "Application stopped gracefully.")
	return nil
}

// startMonitoringServer starts an HTTP server that provides health check and metrics endpoints.
// It listens on the specified port until ctx is cancelled.
func startMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	dtb *pgxpool.Pool,
	port int,
) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, req *http.Request) {
		log.DebugContext(req.Context(), "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if err := dtb.Ping(req.Context()); err != nil {
			status, body = http.StatusServiceUnavailable, "DB ping failed"
		}
		writer.WriteHeader(status)
		if _, err := writer.Write([]byte(body)); err != nil {
			log.ErrorContext(req.Context(), "failed to write reply", "error", err)
		}

		log.DebugContext(req.Context(), "Health checks completed", "status", status)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.InfoContext(ctx, "Starting monitoring server", "port", port)
	const (
		readTimeout  = 5 * time.Second
		writeTimeout = 10 * time.Second
	)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.ErrorContext(ctx, "Monitoring server shutdown failed", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.ErrorContext(ctx, "Monitoring server failed", "error", err)
	}
}
