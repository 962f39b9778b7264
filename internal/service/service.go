// Package service runs the shade pipeline: it loads the network, casts shadows for an
// instant, scores coverage, persists the run and serves routes from the latest snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/coverage"
	"github.com/UnknownOlympus/shadeway/internal/geo"
	"github.com/UnknownOlympus/shadeway/internal/geocoding"
	"github.com/UnknownOlympus/shadeway/internal/metrics"
	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/repository"
	"github.com/UnknownOlympus/shadeway/internal/routing"
	"github.com/UnknownOlympus/shadeway/internal/shadow"
	"github.com/UnknownOlympus/shadeway/internal/spatial"
	"github.com/UnknownOlympus/shadeway/internal/sun"
)

// ErrNoSnapshot is returned by queries served before the first successful refresh.
var ErrNoSnapshot = errors.New("no coverage snapshot published yet")

// Options tune the pipeline. Zero values fall back to package defaults.
type Options struct {
	Workers      int                   // Concurrent projection and scoring workers.
	Interval     time.Duration         // Period of the refresh loop.
	Shadow       shadow.Config         // Tree shadow constants.
	Epsilon      float64               // Coverage clamp tolerance.
	RouteTimeout time.Duration         // Bound of a single path search.
	Solver       shadow.BuildingSolver // Building shadow source, stored solver output when nil.
	Calculator   sun.Calculator        // Sun astronomy routine, suncalc when nil.
	Clock        func() time.Time      // Source of "now" for the refresh loop.
}

// Snapshot is an immutable scored view of the network for one instant.
type Snapshot struct {
	Run        models.CoverageRun
	Projection geo.Projection
	Segments   []models.Segment       // Scored metric segments.
	Shadows    []models.ShadowPolygon // Metric shadows, trees first.
	Index      *spatial.Index
	Graph      *routing.Graph
	Skipped    []models.ObjectError
}

// ShadeService ties the pipeline stages together.
type ShadeService struct {
	log          *slog.Logger          // Logger for logging service activities
	repo         repository.Interface  // Interface for data repository access
	solver       shadow.BuildingSolver // Building shadow source
	geocoder     geocoding.Provider    // Resolves address endpoints; may be nil
	providerName string                // Name of the geocoder for metrics labeling
	metrics      *metrics.Metrics      // Metrics for tracking service performance
	resolver     *sun.Resolver
	projector    *shadow.Projector
	engine       *coverage.Engine
	router       *routing.Router
	quadSegs     int
	interval     time.Duration
	now          func() time.Time

	snapshot atomic.Pointer[Snapshot]
}

// NewShadeService creates a new instance of ShadeService.
func NewShadeService(
	log *slog.Logger,
	repo repository.Interface,
	geocoder geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	opts Options,
) *ShadeService {
	const defaultInterval = 15 * time.Minute

	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Shadow.Workers <= 0 {
		opts.Shadow.Workers = opts.Workers
	}
	if opts.Solver == nil {
		opts.Solver = NewStoredShadows(repo)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	projector := shadow.NewProjector(opts.Shadow, log)

	return &ShadeService{
		log:          log,
		repo:         repo,
		solver:       opts.Solver,
		geocoder:     geocoder,
		providerName: providerName,
		metrics:      metrics,
		resolver:     sun.NewResolver(opts.Calculator),
		projector:    projector,
		engine:       coverage.NewEngine(log, metrics, opts.Workers, opts.Epsilon),
		router:       routing.NewRouter(log, opts.RouteTimeout),
		quadSegs:     projector.Config().QuadSegs,
		interval:     opts.Interval,
		now:          opts.Clock,
	}
}

// Run refreshes coverage immediately and then on every tick until ctx is cancelled.
func (s *ShadeService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.InfoContext(ctx, "Shade service started...", "interval", s.interval)
	s.refreshLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.InfoContext(ctx, "Shade service stopped.")
			return
		case <-ticker.C:
			s.refreshLogged(ctx)
		}
	}
}

func (s *ShadeService) refreshLogged(ctx context.Context) {
	_, err := s.Refresh(ctx, s.now())
	switch {
	case err == nil:
	case errors.Is(err, sun.ErrBelowHorizon):
		s.log.InfoContext(ctx, "Sun is below the horizon, keeping previous snapshot", "error", err)
	default:
		s.log.ErrorContext(ctx, "Failed to refresh coverage", "error", err)
	}
}

// Refresh scores the network for ts, persists the run and publishes the snapshot.
// A snapshot that failed to persist is still published and the save error returned.
func (s *ShadeService) Refresh(ctx context.Context, ts time.Time) (*Snapshot, error) {
	snap, err := s.Compute(ctx, ts)
	if err != nil {
		return nil, err
	}

	s.publish(snap)

	start := time.Now()
	err = s.repo.SaveCoverage(ctx, snap.Run, snap.Segments)
	s.metrics.StageSeconds.WithLabelValues("save").Observe(time.Since(start).Seconds())
	if err != nil {
		return snap, fmt.Errorf("failed to persist coverage run %s: %w", snap.Run.ID, err)
	}

	s.log.InfoContext(ctx, "Coverage run saved", "run", snap.Run.ID, "segments", len(snap.Segments))
	return snap, nil
}

// Snapshot returns the latest published snapshot.
func (s *ShadeService) Snapshot() (*Snapshot, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

func (s *ShadeService) publish(snap *Snapshot) {
	s.snapshot.Store(snap)
	s.metrics.LastRefresh.Set(float64(snap.Run.ComputedFor.Unix()))
}
