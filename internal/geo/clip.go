package geo

import (
	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Contains reports whether any of the polygons covers p. Boundary points count as covered
// and empty polygons are ignored.
func Contains(polys []orb.MultiPolygon, p orb.Point) bool {
	for _, mp := range polys {
		for _, poly := range mp {
			if len(poly) == 0 || len(poly[0]) < 3 {
				continue
			}
			if planar.PolygonContains(poly, p) {
				return true
			}
		}
	}
	return false
}

// ClipLine returns the parts of line lying inside the union of polys.
func ClipLine(line orb.LineString, polys []orb.MultiPolygon) orb.MultiLineString {
	clip := UnionAll(polys)
	if clip == nil || len(line) < 2 {
		return nil
	}

	path := make(geom.LineString, 0, len(line))
	for _, p := range line {
		path = append(path, geom.Point{X: p[0], Y: p[1]})
	}

	clipped, ok := path.Clip(clip).(geom.MultiLineString)
	if !ok {
		return nil
	}
	out := make(orb.MultiLineString, 0, len(clipped))
	for _, piece := range clipped {
		if len(piece) < 2 {
			continue
		}
		ls := make(orb.LineString, 0, len(piece))
		for _, p := range piece {
			ls = append(ls, orb.Point{p.X, p.Y})
		}
		out = append(out, ls)
	}

	return out
}

// CoveredLength is the total length of line inside the union of polys. Overlapping
// polygons are merged first so shared stretches count once.
func CoveredLength(line orb.LineString, polys []orb.MultiPolygon) float64 {
	return planar.Length(ClipLine(line, polys))
}
