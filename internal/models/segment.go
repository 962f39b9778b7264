package models

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Segment is one edge of the walkable network between two nodes.
//
// Length is measured once in the metric frame. CoveredLength and CoveredFraction are
// written by the coverage engine and satisfy 0 <= CoveredLength <= Length.
type Segment struct {
	ID              int64
	NodeU           int64
	NodeV           int64
	Geometry        orb.LineString
	Length          float64
	CoveredLength   float64
	CoveredFraction float64
	Traffic         float64 // Normalized traffic in [0,1], zero when unknown.
	Frame           Frame
}

// NewSegment creates a metric-frame segment and measures its length.
func NewSegment(id, nodeU, nodeV int64, line orb.LineString) Segment {
	return Segment{
		ID:       id,
		NodeU:    nodeU,
		NodeV:    nodeV,
		Geometry: line,
		Length:   planar.Length(line),
		Frame:    FrameMetric,
	}
}

// Other returns the endpoint opposite to node.
func (s Segment) Other(node int64) int64 {
	if node == s.NodeU {
		return s.NodeV
	}
	return s.NodeU
}
