package routing

import (
	"slices"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/paulmach/orb"
)

// Step is one traversed segment, with the direction it was walked in.
type Step struct {
	Segment models.Segment
	From    int64
	To      int64
}

// Line returns the segment geometry oriented from From to To.
func (s Step) Line() orb.LineString {
	line := s.Segment.Geometry.Clone()
	if s.From != s.Segment.NodeU && s.From == s.Segment.NodeV {
		line.Reverse()
	}
	return line
}

// Route is an ordered, connected sequence of segments from Start to End.
type Route struct {
	Start int64
	End   int64
	Alpha float64
	Steps []Step
}

// Length is the total length of the route.
func (r *Route) Length() float64 {
	var total float64
	for _, s := range r.Steps {
		total += s.Segment.Length
	}
	return total
}

// CoveredLength is the total shaded length of the route.
func (r *Route) CoveredLength() float64 {
	var total float64
	for _, s := range r.Steps {
		total += s.Segment.CoveredLength
	}
	return total
}

// CoveredFraction is the shaded share of the route, zero for an empty route.
func (r *Route) CoveredFraction() float64 {
	length := r.Length()
	if length == 0 {
		return 0
	}
	return r.CoveredLength() / length
}

// Cost is the route weight under alpha.
func (r *Route) Cost(alpha float64) float64 {
	var total float64
	for _, s := range r.Steps {
		total += Weight(s.Segment, alpha)
	}
	return total
}

// Nodes lists the visited nodes, start and end included.
func (r *Route) Nodes() []int64 {
	nodes := []int64{r.Start}
	for _, s := range r.Steps {
		nodes = append(nodes, s.To)
	}
	return slices.Clip(nodes)
}

// SegmentIDs lists the traversed segment ids in order.
func (r *Route) SegmentIDs() []int64 {
	ids := make([]int64, 0, len(r.Steps))
	for _, s := range r.Steps {
		ids = append(ids, s.Segment.ID)
	}
	return ids
}
