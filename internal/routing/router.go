package routing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/paulmach/orb"
)

// Router answers route queries. Each query builds its own graph and search state, so
// one Router may serve concurrent queries.
type Router struct {
	log     *slog.Logger
	timeout time.Duration
}

// NewRouter creates a Router. A positive timeout bounds every search.
func NewRouter(log *slog.Logger, timeout time.Duration) *Router {
	return &Router{log: log, timeout: timeout}
}

// Route finds the cheapest path between two nodes of the network built from segments.
func (r *Router) Route(ctx context.Context, segments []models.Segment, start, end int64, alpha float64) (*Route, error) {
	graph, err := NewGraph(segments)
	if err != nil {
		return nil, fmt.Errorf("failed to build route graph: %w", err)
	}
	return r.RouteGraph(ctx, graph, start, end, alpha)
}

// RouteBetween snaps two metric points to their nearest nodes and routes between them.
func (r *Router) RouteBetween(ctx context.Context, segments []models.Segment, from, to orb.Point, alpha float64) (*Route, error) {
	graph, err := NewGraph(segments)
	if err != nil {
		return nil, fmt.Errorf("failed to build route graph: %w", err)
	}
	start, err := graph.NearestNode(from)
	if err != nil {
		return nil, err
	}
	end, err := graph.NearestNode(to)
	if err != nil {
		return nil, err
	}
	r.log.DebugContext(ctx, "Snapped route endpoints", "start", start, "end", end)

	return r.RouteGraph(ctx, graph, start, end, alpha)
}

// RouteGraph searches a prebuilt graph, so callers serving many queries over one
// network build it once.
func (r *Router) RouteGraph(ctx context.Context, graph *Graph, start, end int64, alpha float64) (*Route, error) {
	if alpha < 0 || alpha > 1 {
		r.log.WarnContext(ctx, "Shade preference outside [0,1] departs from the distance/shade trade-off",
			"alpha", alpha)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	steps, _, err := graph.ShortestPath(ctx, start, end, alpha)
	if err != nil {
		return nil, err
	}

	return &Route{Start: start, End: end, Alpha: alpha, Steps: steps}, nil
}
