// Package routing finds shade-aware shortest paths over scored network segments.
package routing

import (
	"errors"
	"fmt"
	"math"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var (
	// ErrUnknownNode is returned when a route endpoint is not a node of the graph.
	ErrUnknownNode = errors.New("unknown node")
	// ErrNoPathFound is returned when the endpoints are disconnected or the search was cut short.
	ErrNoPathFound = errors.New("no path found")
	// ErrInvalidAlpha is returned for a shade preference that is not a finite number.
	ErrInvalidAlpha = errors.New("invalid shade preference")
)

// Weight is the traversal cost of a segment: length - alpha*covered_length.
// Alpha 0 ranks by distance, alpha 1 by distance spent in the sun.
func Weight(seg models.Segment, alpha float64) float64 {
	return seg.Length - alpha*seg.CoveredLength
}

// Graph is an undirected multigraph over segment endpoints. Parallel segments between
// the same nodes stay separate edges. It is read-only once built.
type Graph struct {
	edges []models.Segment
	adj   map[int64][]int
}

// NewGraph builds a graph from scored segments. A segment with a negative or non-finite
// length or covered length fails the build with models.ErrDegenerateGeometry.
func NewGraph(segments []models.Segment) (*Graph, error) {
	g := &Graph{
		edges: make([]models.Segment, 0, len(segments)),
		adj:   make(map[int64][]int),
	}
	for _, seg := range segments {
		if !finiteNonNegative(seg.Length) || !finiteNonNegative(seg.CoveredLength) {
			return nil, models.ObjectError{
				Kind: models.KindSegment,
				ID:   seg.ID,
				Err: fmt.Errorf("%w: length %v, covered %v",
					models.ErrDegenerateGeometry, seg.Length, seg.CoveredLength),
			}
		}
		idx := len(g.edges)
		g.edges = append(g.edges, seg)
		g.adj[seg.NodeU] = append(g.adj[seg.NodeU], idx)
		if seg.NodeV != seg.NodeU {
			g.adj[seg.NodeV] = append(g.adj[seg.NodeV], idx)
		}
	}

	return g, nil
}

// HasNode reports whether id is an endpoint of some segment.
func (g *Graph) HasNode(id int64) bool {
	_, ok := g.adj[id]
	return ok
}

// NodeCount returns the number of distinct nodes.
func (g *Graph) NodeCount() int {
	return len(g.adj)
}

// EdgeCount returns the number of edges, parallel edges included.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// NearestNode snaps a metric point to the network: it picks the segment closest to p and
// returns whichever of its endpoints is closer.
func (g *Graph) NearestNode(p orb.Point) (int64, error) {
	best, bestDist := -1, math.Inf(1)
	for i, seg := range g.edges {
		if len(seg.Geometry) == 0 {
			continue
		}
		if d := planar.DistanceFrom(seg.Geometry, p); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("%w: graph has no geometry to snap to", ErrUnknownNode)
	}

	seg := g.edges[best]
	first, last := seg.Geometry[0], seg.Geometry[len(seg.Geometry)-1]
	if planar.Distance(p, last) < planar.Distance(p, first) {
		return seg.NodeV, nil
	}
	return seg.NodeU, nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
