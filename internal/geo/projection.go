// Package geo holds the planar geometry used by shadow casting and coverage scoring.
//
// Everything here works on orb types in a metric frame unless a function says otherwise.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Projection maps WGS84 coordinates onto a local metric plane centred on an origin.
// It is Web Mercator rescaled by the cosine of the origin latitude, so distances near
// the origin are close to meters.
type Projection struct {
	origin     orb.Point
	originMerc orb.Point
	scale      float64
}

// NewProjection returns a projection centred on the geographic origin (lon, lat).
func NewProjection(origin orb.Point) Projection {
	return Projection{
		origin:     origin,
		originMerc: project.WGS84.ToMercator(origin),
		scale:      math.Cos(origin.Lat() * math.Pi / 180),
	}
}

// Origin returns the geographic origin of the projection.
func (p Projection) Origin() orb.Point {
	return p.origin
}

// ToMetric projects a geographic point.
func (p Projection) ToMetric(pt orb.Point) orb.Point {
	m := project.WGS84.ToMercator(pt)
	return orb.Point{(m[0] - p.originMerc[0]) * p.scale, (m[1] - p.originMerc[1]) * p.scale}
}

// ToGeographic reverses ToMetric.
func (p Projection) ToGeographic(pt orb.Point) orb.Point {
	m := orb.Point{pt[0]/p.scale + p.originMerc[0], pt[1]/p.scale + p.originMerc[1]}
	return project.Mercator.ToWGS84(m)
}

// LineStringToMetric returns a projected copy of ls.
func (p Projection) LineStringToMetric(ls orb.LineString) orb.LineString {
	return project.LineString(ls.Clone(), p.ToMetric)
}

// LineStringToGeographic returns an unprojected copy of ls.
func (p Projection) LineStringToGeographic(ls orb.LineString) orb.LineString {
	return project.LineString(ls.Clone(), p.ToGeographic)
}

// PolygonToMetric returns a projected copy of poly.
func (p Projection) PolygonToMetric(poly orb.Polygon) orb.Polygon {
	return project.Polygon(poly.Clone(), p.ToMetric)
}

// MultiPolygonToMetric returns a projected copy of mp.
func (p Projection) MultiPolygonToMetric(mp orb.MultiPolygon) orb.MultiPolygon {
	return project.MultiPolygon(mp.Clone(), p.ToMetric)
}

// MultiPolygonToGeographic returns an unprojected copy of mp.
func (p Projection) MultiPolygonToGeographic(mp orb.MultiPolygon) orb.MultiPolygon {
	return project.MultiPolygon(mp.Clone(), p.ToGeographic)
}

// Extent returns the bounding box of all geometries. It is empty when nothing is passed.
func Extent(geoms ...orb.Geometry) orb.Bound {
	var (
		bound orb.Bound
		set   bool
	)
	for _, g := range geoms {
		if g == nil {
			continue
		}
		b := g.Bound()
		if b.IsEmpty() {
			continue
		}
		if !set {
			bound, set = b, true
			continue
		}
		bound = bound.Union(b)
	}
	if !set {
		return orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{-1, -1}}
	}

	return bound
}
