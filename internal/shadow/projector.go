// Package shadow casts tree shadows and defines how building shadows are obtained.
package shadow

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/geo"
	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/sun"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/sync/errgroup"
)

// Config holds the empirical constants of the tree shadow model.
type Config struct {
	ShrinkFactor float64 // Share of the bbox half-diagonal the inner crown is eroded by.
	TrunkRadius  float64 // Buffer radius of the trunk shadow in meters.
	QuadSegs     int     // Arc segments per quarter circle for buffers.
	Workers      int     // Concurrent projections in ProjectAll.
}

// DefaultConfig returns the constants the shadow model was tuned with.
func DefaultConfig() Config {
	return Config{ShrinkFactor: 0.2, TrunkRadius: 0.3, QuadSegs: 8, Workers: 8}
}

// Projector turns trees into shadow polygons for one sun position.
type Projector struct {
	cfg Config
	log *slog.Logger
}

// NewProjector creates a Projector. Zero or negative settings fall back to the defaults.
func NewProjector(cfg Config, log *slog.Logger) *Projector {
	def := DefaultConfig()
	if cfg.ShrinkFactor < 0 {
		cfg.ShrinkFactor = def.ShrinkFactor
	}
	if cfg.TrunkRadius <= 0 {
		cfg.TrunkRadius = def.TrunkRadius
	}
	if cfg.QuadSegs <= 0 {
		cfg.QuadSegs = def.QuadSegs
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	return &Projector{cfg: cfg, log: log}
}

// Config returns the effective settings after defaults were applied.
func (p *Projector) Config() Config {
	return p.cfg
}

// Displacement is the horizontal offset of the shadow of a point at height above the ground.
func Displacement(height float64, pos sun.Position) (float64, float64) {
	distance := height / math.Tan(pos.Altitude)
	return distance * math.Sin(pos.Azimuth), distance * math.Cos(pos.Azimuth)
}

// InnerCrown erodes the canopy by shrinkFactor times the distance from its bbox centre
// to the bbox minimum corner. A non-convex canopy may split into several parts; the
// result is empty when the erosion consumes the canopy.
func InnerCrown(canopy orb.Ring, shrinkFactor float64, quadSegs int) orb.MultiPolygon {
	bound := canopy.Bound()
	d := planar.Distance(bound.Center(), bound.Min) * shrinkFactor
	return geo.Erode(canopy, d, quadSegs)
}

type layer struct {
	points []orb.Point
	height float64
}

// outline lists the vertices of every shell; holes lie inside them and never reach a hull.
func outline(mp orb.MultiPolygon) []orb.Point {
	var pts []orb.Point
	for _, poly := range mp {
		if len(poly) > 0 {
			pts = append(pts, poly[0]...)
		}
	}
	return pts
}

// Project casts the shadow of one metric-frame tree.
func (p *Projector) Project(tree models.Tree, pos sun.Position, ts time.Time) (models.ShadowPolygon, error) {
	if err := models.RequireFrame(models.FrameMetric, tree.Frame); err != nil {
		return models.ShadowPolygon{}, err
	}
	if err := tree.Validate(); err != nil {
		return models.ShadowPolygon{}, err
	}
	if !(pos.Altitude > 0) {
		return models.ShadowPolygon{}, sun.ErrBelowHorizon
	}

	canopy := tree.Canopy[0]
	inner := outline(InnerCrown(canopy, p.cfg.ShrinkFactor, p.cfg.QuadSegs))
	layers := []layer{
		{points: inner, height: tree.Height},
		{points: canopy, height: (1 - tree.CrownRatio/2) * tree.Height},
		{points: inner, height: (1 - tree.CrownRatio) * tree.Height},
	}

	var points []orb.Point
	for _, l := range layers {
		if len(l.points) == 0 {
			continue
		}
		dx, dy := Displacement(l.height, pos)
		points = append(points, geo.Translate(l.points, dx, dy)...)
	}
	hull := geo.ConvexHull(points)
	if hull == nil {
		return models.ShadowPolygon{}, fmt.Errorf("%w: canopy has no area", models.ErrDegenerateGeometry)
	}

	centroid, _ := planar.CentroidArea(tree.Canopy)
	dx, dy := Displacement(tree.Height, pos)
	if math.IsInf(dx, 0) || math.IsInf(dy, 0) || math.IsNaN(dx) || math.IsNaN(dy) {
		return models.ShadowPolygon{}, fmt.Errorf("%w: shadow displacement is not finite", models.ErrDegenerateGeometry)
	}
	trunk := geo.Capsule(centroid, orb.Point{centroid[0] + dx, centroid[1] + dy}, p.cfg.TrunkRadius, p.cfg.QuadSegs)

	return models.ShadowPolygon{
		SourceID:    tree.ID,
		Kind:        models.ShadowTree,
		ComputedFor: ts,
		Geometry:    geo.Union(hull, trunk),
		Frame:       models.FrameMetric,
	}, nil
}

// ProjectAll casts shadows for every tree in parallel. Trees that fail are reported per id
// and do not stop the batch; only a cancelled context aborts it.
func (p *Projector) ProjectAll(
	ctx context.Context,
	trees []models.Tree,
	pos sun.Position,
	ts time.Time,
) ([]models.ShadowPolygon, []models.ObjectError, error) {
	results := make([]models.ShadowPolygon, len(trees))
	errs := make([]error, len(trees))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(p.cfg.Workers)
	for i := range trees {
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = p.Project(trees[i], pos, ts)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to project tree shadows: %w", err)
	}

	shadows := make([]models.ShadowPolygon, 0, len(trees))
	var failed []models.ObjectError
	for i, err := range errs {
		if err != nil {
			p.log.WarnContext(ctx, "Skipping tree shadow", "tree", trees[i].ID, "error", err)
			failed = append(failed, models.ObjectError{Kind: models.KindTree, ID: trees[i].ID, Err: err})
			continue
		}
		shadows = append(shadows, results[i])
	}

	return shadows, failed, nil
}
