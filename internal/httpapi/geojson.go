package httpapi

import (
	"github.com/UnknownOlympus/shadeway/internal/geo"
	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/planting"
	"github.com/UnknownOlympus/shadeway/internal/service"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// routeCollection renders a route as one geographic line feature per step, with the
// route summary as foreign members of the collection.
func routeCollection(res *service.RouteResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, step := range res.Route.Steps {
		f := geojson.NewFeature(res.Projection.LineStringToGeographic(step.Line()))
		f.Properties["segment_id"] = step.Segment.ID
		f.Properties["from"] = step.From
		f.Properties["to"] = step.To
		f.Properties["length"] = step.Segment.Length
		f.Properties["covered_length"] = step.Segment.CoveredLength
		f.Properties["covered_fraction"] = step.Segment.CoveredFraction
		fc.Append(f)
	}

	route := res.Route
	fc.ExtraMembers = geojson.Properties{
		"start":            route.Start,
		"end":              route.End,
		"nodes":            route.Nodes(),
		"alpha":            route.Alpha,
		"length":           route.Length(),
		"covered_length":   route.CoveredLength(),
		"covered_fraction": route.CoveredFraction(),
		"cost":             route.Cost(route.Alpha),
		"computed_for":     res.ComputedFor,
	}
	return fc
}

// coverageCollection renders scored segments whose geographic geometry intersects area.
// A nil area keeps every segment.
func coverageCollection(snap *service.Snapshot, area *orb.Bound) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, seg := range snap.Segments {
		line := snap.Projection.LineStringToGeographic(seg.Geometry)
		if area != nil && !area.Intersects(line.Bound()) {
			continue
		}
		fc.Append(segmentFeature(seg, line))
	}

	fc.ExtraMembers = geojson.Properties{
		"run_id":       snap.Run.ID,
		"computed_for": snap.Run.ComputedFor,
		"azimuth":      snap.Run.Azimuth,
		"altitude":     snap.Run.Altitude,
		"shadows":      snap.Run.Shadows,
		"skipped":      len(snap.Skipped),
	}
	return fc
}

func segmentFeature(seg models.Segment, line orb.LineString) *geojson.Feature {
	f := geojson.NewFeature(line)
	f.Properties["segment_id"] = seg.ID
	f.Properties["node_u"] = seg.NodeU
	f.Properties["node_v"] = seg.NodeV
	f.Properties["length"] = seg.Length
	f.Properties["covered_length"] = seg.CoveredLength
	f.Properties["covered_fraction"] = seg.CoveredFraction
	f.Properties["traffic"] = seg.Traffic
	return f
}

// plantingCollection renders selected planting candidates in selection order.
func plantingCollection(proj geo.Projection, candidates []planting.Candidate, budget int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	spent := 0
	for rank, cand := range candidates {
		f := segmentFeature(cand.Segment, proj.LineStringToGeographic(cand.Segment.Geometry))
		f.Properties["rank"] = rank + 1
		f.Properties["score"] = cand.Score
		f.Properties["cost"] = cand.Cost
		f.Properties["shade_percent"] = cand.ShadePercent
		f.Properties["possible_shade_percent"] = cand.PossibleShadePercent
		f.Properties["runs"] = cand.Runs
		fc.Append(f)
		spent += cand.Cost
	}

	fc.ExtraMembers = geojson.Properties{
		"budget": budget,
		"spent":  spent,
	}
	return fc
}
