package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/geo"
	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/observability"
	"github.com/UnknownOlympus/shadeway/internal/planting"
	"github.com/UnknownOlympus/shadeway/internal/routing"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrInvalidEndpoint is returned for an endpoint that names neither a node, a point nor an address.
	ErrInvalidEndpoint = errors.New("route endpoint needs a node, a point or an address")
	// ErrGeocoderUnavailable is returned for address endpoints when no geocoder is configured.
	ErrGeocoderUnavailable = errors.New("no geocoding provider configured")
)

// Endpoint is one end of a route query. Exactly one field is used, in the order
// Node, Point, Address.
type Endpoint struct {
	Node    *int64
	Point   *models.Coordinates // Geographic point snapped to the nearest node.
	Address string              // Geocoded, then snapped.
}

// RouteResult is a route over the snapshot it was computed on.
type RouteResult struct {
	Route       *routing.Route
	Projection  geo.Projection
	ComputedFor time.Time
}

// Route finds the cheapest path between two endpoints on the latest snapshot.
func (s *ShadeService) Route(ctx context.Context, from, to Endpoint, alpha float64) (_ *RouteResult, err error) {
	ctx, span := observability.StartSpan(ctx, "shadeway.route", attribute.Float64("alpha", alpha))
	defer func() {
		observability.EndSpan(span, err)
		status := "success"
		if err != nil {
			status = "failure"
		}
		s.metrics.RouteQueries.WithLabelValues(status).Inc()
	}()

	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	start, err := s.resolveEndpoint(ctx, snap, from)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve route start: %w", err)
	}
	end, err := s.resolveEndpoint(ctx, snap, to)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve route end: %w", err)
	}

	route, err := s.router.RouteGraph(ctx, snap.Graph, start, end, alpha)
	if err != nil {
		return nil, err
	}

	s.log.DebugContext(ctx, "Route found",
		"start", start, "end", end, "alpha", alpha,
		"length", route.Length(), "covered_fraction", route.CoveredFraction())

	return &RouteResult{Route: route, Projection: snap.Projection, ComputedFor: snap.Run.ComputedFor}, nil
}

func (s *ShadeService) resolveEndpoint(ctx context.Context, snap *Snapshot, ep Endpoint) (int64, error) {
	switch {
	case ep.Node != nil:
		return *ep.Node, nil
	case ep.Point != nil:
		return snap.Graph.NearestNode(snap.Projection.ToMetric(ep.Point.Point()))
	case ep.Address != "":
		coords, err := s.geocode(ctx, ep.Address)
		if err != nil {
			return 0, err
		}
		return snap.Graph.NearestNode(snap.Projection.ToMetric(coords.Point()))
	default:
		return 0, ErrInvalidEndpoint
	}
}

func (s *ShadeService) geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	if s.geocoder == nil {
		return nil, ErrGeocoderUnavailable
	}

	start := time.Now()
	coords, err := s.geocoder.Geocode(ctx, address)
	s.metrics.GeocoderSeconds.WithLabelValues(s.providerName).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to geocode %q: %w", address, err)
	}

	return coords, nil
}

// Plan ranks segments of the latest snapshot for tree planting and greedily selects
// candidates within budget trees.
func (s *ShadeService) Plan(ctx context.Context, params planting.Params, budget int) ([]planting.Candidate, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return s.PlanSnapshot(ctx, snap, params, budget), nil
}

// PlanSnapshot is Plan against a snapshot the caller already holds, so the candidates
// and anything else read from snap describe the same run.
func (s *ShadeService) PlanSnapshot(
	ctx context.Context,
	snap *Snapshot,
	params planting.Params,
	budget int,
) []planting.Candidate {
	ranked := planting.Rank(snap.Segments, snap.Index, snap.Shadows, params)
	selected := planting.Select(ranked, budget)

	s.log.InfoContext(ctx, "Planting candidates selected",
		"run", snap.Run.ID, "ranked", len(ranked), "selected", len(selected), "budget", budget)

	return selected
}
