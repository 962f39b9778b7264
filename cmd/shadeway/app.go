package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/shadeway/internal/config"
	"github.com/UnknownOlympus/shadeway/internal/geo"
	"github.com/UnknownOlympus/shadeway/internal/geocoding"
	"github.com/UnknownOlympus/shadeway/internal/metrics"
	"github.com/UnknownOlympus/shadeway/internal/observability"
	"github.com/UnknownOlympus/shadeway/internal/planting"
	"github.com/UnknownOlympus/shadeway/internal/repository"
	"github.com/UnknownOlympus/shadeway/internal/service"
	"github.com/UnknownOlympus/shadeway/internal/shadow"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	reg     *prometheus.Registry
	db      *pgxpool.Pool
	service *service.ShadeService

	shutdownTracing func(context.Context) error
}

// newApp loads configuration and connects every dependency of the shade service.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "shadeway",
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	dtb, err := repository.NewDatabase(
		ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		observability.ShutdownWithTimeout(ctx, shutdownTracing, logger)
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	repo := repository.NewRepository(dtb, logger)

	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Geocoder.Provider),
		APIKey:    cfg.Geocoder.APIKey,
		RateLimit: cfg.Geocoder.RateLimit,
		Region:    cfg.Geocoder.Region,
		Area:      networkArea(ctx, logger, repo),
		Logger:    logger,
	})
	if err != nil {
		// Address endpoints are optional; node and point endpoints keep working.
		logger.WarnContext(ctx, "Geocoding provider unavailable", "type", cfg.Geocoder.Provider, "error", err)
		geoProvider = nil
	} else {
		logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Geocoder.Provider)
	}

	shadeService := service.NewShadeService(
		logger,
		repo,
		geoProvider,
		cfg.Geocoder.Provider,
		appMetrics,
		service.Options{
			Workers:  cfg.Workers,
			Interval: cfg.Interval,
			Shadow: shadow.Config{
				ShrinkFactor: cfg.Shadow.ShrinkFactor,
				TrunkRadius:  cfg.Shadow.TrunkRadius,
				QuadSegs:     cfg.Shadow.QuadSegs,
				Workers:      cfg.Workers,
			},
			Epsilon:      cfg.Coverage.Epsilon,
			RouteTimeout: cfg.Routing.Timeout,
		},
	)

	return &app{
		cfg:             cfg,
		log:             logger,
		reg:             reg,
		db:              dtb,
		service:         shadeService,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Close flushes spans and releases the database pool.
func (a *app) Close(ctx context.Context) {
	observability.ShutdownWithTimeout(ctx, a.shutdownTracing, a.log)
	a.db.Close()
}

func (a *app) plantingParams() planting.Params {
	p := a.cfg.Planting
	return planting.Params{
		Spacing:       p.Spacing,
		TreesInRow:    p.TreesInRow,
		MinShade:      p.MinShade,
		MinTraffic:    p.MinTraffic,
		TrafficWeight: p.TrafficWeight,
	}
}

// networkArea returns the geographic extent of the network, used to bias geocoding.
// An empty bound disables the bias.
func networkArea(ctx context.Context, log *slog.Logger, repo repository.Interface) orb.Bound {
	segments, err := repo.FetchSegments(ctx)
	if err != nil {
		log.WarnContext(ctx, "Failed to load network extent for geocoding bias", "error", err)
		return orb.Bound{}
	}

	geoms := make([]orb.Geometry, 0, len(segments))
	for _, seg := range segments {
		geoms = append(geoms, seg.Geometry)
	}
	return geo.Extent(geoms...)
}
