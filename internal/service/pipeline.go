package service

import (
	"context"
	"fmt"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/geo"
	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/observability"
	"github.com/UnknownOlympus/shadeway/internal/routing"
	"github.com/UnknownOlympus/shadeway/internal/spatial"
	"github.com/UnknownOlympus/shadeway/internal/sun"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.opentelemetry.io/otel/attribute"
)

// world is the network and its shade sources projected into one metric frame.
type world struct {
	projection geo.Projection
	origin     models.Coordinates
	segments   []models.Segment  // metric
	trees      []models.Tree     // metric
	buildings  []models.Building // geographic, as handed to the solver
}

// shadowBatch is every shadow cast at one instant.
type shadowBatch struct {
	pos       sun.Position
	trees     []models.ShadowPolygon
	buildings []models.ShadowPolygon
	skipped   []models.ObjectError
}

func (c *shadowBatch) all() []models.ShadowPolygon {
	shadows := make([]models.ShadowPolygon, 0, len(c.trees)+len(c.buildings))
	shadows = append(shadows, c.trees...)
	return append(shadows, c.buildings...)
}

// Compute scores the network for ts without persisting or publishing the result.
func (s *ShadeService) Compute(ctx context.Context, ts time.Time) (_ *Snapshot, err error) {
	ctx, span := observability.StartSpan(ctx, "shadeway.compute",
		attribute.String("computed_for", ts.UTC().Format(time.RFC3339)))
	defer func() { observability.EndSpan(span, err) }()

	w, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.cast(ctx, w, ts)
	if err != nil {
		return nil, err
	}

	shadows := c.all()
	index, segments, skipped, err := s.score(ctx, w.segments, shadows)
	if err != nil {
		return nil, err
	}
	skipped = append(c.skipped, skipped...)

	graph, err := routing.NewGraph(segments)
	if err != nil {
		return nil, fmt.Errorf("failed to build route graph: %w", err)
	}

	return &Snapshot{
		Run: models.CoverageRun{
			ID:          uuid.NewString(),
			ComputedFor: ts,
			Azimuth:     c.pos.Azimuth,
			Altitude:    c.pos.Altitude,
			Shadows:     len(shadows),
			Segments:    len(segments),
			Skipped:     len(skipped),
		},
		Projection: w.projection,
		Segments:   segments,
		Shadows:    shadows,
		Index:      index,
		Graph:      graph,
		Skipped:    skipped,
	}, nil
}

// load reads the network and the trees and projects them around the network centre.
func (s *ShadeService) load(ctx context.Context) (*world, error) {
	defer s.observeStage("load", time.Now())

	segments, err := s.repo.FetchSegments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load network: %w", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("failed to load network: %w: no segments", models.ErrDegenerateGeometry)
	}
	trees, err := s.repo.FetchTrees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trees: %w", err)
	}
	buildings, err := s.repo.FetchBuildings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load buildings: %w", err)
	}

	geoms := make([]orb.Geometry, 0, len(segments))
	for _, seg := range segments {
		geoms = append(geoms, seg.Geometry)
	}
	center := geo.Extent(geoms...).Center()
	w := &world{
		projection: geo.NewProjection(center),
		origin:     models.CoordinatesFromPoint(center),
		segments:   make([]models.Segment, 0, len(segments)),
		trees:      make([]models.Tree, 0, len(trees)),
		buildings:  buildings,
	}

	for _, seg := range segments {
		w.segments = append(w.segments, s.segmentToMetric(w.projection, seg))
	}
	for _, tree := range trees {
		w.trees = append(w.trees, s.treeToMetric(w.projection, tree))
	}

	s.log.DebugContext(ctx, "Network loaded",
		"segments", len(w.segments), "trees", len(w.trees), "buildings", len(w.buildings),
		"origin_lat", w.origin.Latitude, "origin_lon", w.origin.Longitude)

	return w, nil
}

func (s *ShadeService) segmentToMetric(proj geo.Projection, seg models.Segment) models.Segment {
	if seg.Frame == models.FrameMetric {
		return seg
	}
	seg.Geometry = proj.LineStringToMetric(seg.Geometry)
	seg.Length = planar.Length(seg.Geometry)
	seg.Frame = models.FrameMetric
	return seg
}

// treeToMetric projects a tree. A tree without a surveyed canopy gets a circle of its
// crown radius around the trunk.
func (s *ShadeService) treeToMetric(proj geo.Projection, tree models.Tree) models.Tree {
	if tree.Frame == models.FrameMetric {
		return tree
	}
	tree.Trunk = proj.ToMetric(tree.Trunk)
	switch {
	case len(tree.Canopy) > 0:
		tree.Canopy = proj.PolygonToMetric(tree.Canopy)
	case tree.CrownRadius > 0:
		tree.Canopy = orb.Polygon{geo.Circle(tree.Trunk, tree.CrownRadius, s.quadSegs)}
	}
	tree.Frame = models.FrameMetric
	return tree
}

// cast resolves the sun at the network centre and gathers tree and building shadows.
func (s *ShadeService) cast(ctx context.Context, w *world, ts time.Time) (*shadowBatch, error) {
	defer s.observeStage("cast", time.Now())

	pos, err := s.resolver.Resolve(w.origin, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sun position: %w", err)
	}

	trees, skipped, err := s.projector.ProjectAll(ctx, w.trees, pos, ts)
	if err != nil {
		return nil, err
	}
	s.metrics.ShadowsProjected.WithLabelValues(string(models.ShadowTree), "success").Add(float64(len(trees)))
	s.metrics.ShadowsProjected.WithLabelValues(string(models.ShadowTree), "failure").Add(float64(len(skipped)))

	buildings, failed, err := s.buildingShadows(ctx, w, ts)
	if err != nil {
		return nil, err
	}

	return &shadowBatch{pos: pos, trees: trees, buildings: buildings, skipped: append(skipped, failed...)}, nil
}

func (s *ShadeService) buildingShadows(
	ctx context.Context,
	w *world,
	ts time.Time,
) ([]models.ShadowPolygon, []models.ObjectError, error) {
	solved, err := s.solver.Solve(ctx, w.buildings, ts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to solve building shadows: %w", err)
	}

	shadows := make([]models.ShadowPolygon, 0, len(solved))
	var failed []models.ObjectError
	for _, sh := range solved {
		if sh.Frame == models.FrameGeographic {
			sh.Geometry = w.projection.MultiPolygonToMetric(sh.Geometry)
			sh.Frame = models.FrameMetric
		}
		if sh.Empty() {
			err = fmt.Errorf("%w: empty building shadow", models.ErrDegenerateGeometry)
			s.log.WarnContext(ctx, "Skipping building shadow", "building", sh.SourceID, "error", err)
			failed = append(failed, models.ObjectError{Kind: models.KindBuilding, ID: sh.SourceID, Err: err})
			continue
		}
		sh.Kind = models.ShadowBuilding
		shadows = append(shadows, sh)
	}

	s.metrics.ShadowsProjected.WithLabelValues(string(models.ShadowBuilding), "success").Add(float64(len(shadows)))
	s.metrics.ShadowsProjected.WithLabelValues(string(models.ShadowBuilding), "failure").Add(float64(len(failed)))

	return shadows, failed, nil
}

// score indexes shadows and scores segments against them.
func (s *ShadeService) score(
	ctx context.Context,
	segments []models.Segment,
	shadows []models.ShadowPolygon,
) (*spatial.Index, []models.Segment, []models.ObjectError, error) {
	defer s.observeStage("score", time.Now())

	index, err := spatial.Build(shadows)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to index shadows: %w", err)
	}

	scored, skipped, err := s.engine.Score(ctx, segments, index, shadows)
	if err != nil {
		return nil, nil, nil, err
	}

	return index, scored, skipped, nil
}

func (s *ShadeService) observeStage(stage string, start time.Time) {
	s.metrics.StageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
