package geo

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
)

// ToGeom converts a polygon to ctessum/geom paths without closing points.
func ToGeom(poly orb.Polygon) geom.Polygon {
	out := make(geom.Polygon, 0, len(poly))
	for _, ring := range poly {
		n := len(ring)
		if ring.Closed() {
			n--
		}
		path := make(geom.Path, 0, n)
		for _, p := range ring[:n] {
			path = append(path, geom.Point{X: p[0], Y: p[1]})
		}
		out = append(out, path)
	}
	return out
}

// FromGeom assembles the paths of a polygon operation result into shells and holes.
func FromGeom(g geom.Polygonal) orb.MultiPolygon {
	if g == nil {
		return nil
	}

	var rings []orb.Ring
	for _, poly := range g.Polygons() {
		for _, path := range poly {
			ring := make(orb.Ring, 0, len(path)+1)
			for _, p := range path {
				ring = append(ring, orb.Point{p.X, p.Y})
			}
			rings = append(rings, ring)
		}
	}

	return AssembleRings(rings)
}

// UnionAll merges every non-empty polygon into one polygonal geometry. It returns nil
// when there is nothing to merge.
func UnionAll(polys []orb.MultiPolygon) geom.Polygonal {
	var acc geom.Polygonal
	for _, mp := range polys {
		for _, poly := range mp {
			if len(poly) == 0 || len(poly[0]) < 3 {
				continue
			}
			g := ToGeom(poly)
			if acc == nil {
				acc = g
				continue
			}
			acc = acc.Union(g)
		}
	}
	return acc
}

// Union merges two rings. A nil b yields a alone, as does a union that loses all area.
func Union(a, b orb.Ring) orb.MultiPolygon {
	if b == nil {
		return orb.MultiPolygon{{a}}
	}

	out := FromGeom(ToGeom(orb.Polygon{a}).Union(ToGeom(orb.Polygon{b})))
	if len(out) == 0 {
		return orb.MultiPolygon{{a}}
	}
	return out
}

// IsConvex reports whether the closed ring turns the same way at every vertex.
func IsConvex(ring orb.Ring) bool {
	pts := ring
	if ring.Closed() {
		pts = ring[:len(ring)-1]
	}
	if len(pts) < 3 {
		return false
	}

	sign := 0
	for i := range pts {
		c := cross(pts[i], pts[(i+1)%len(pts)], pts[(i+2)%len(pts)])
		switch {
		case c > 0 && sign < 0, c < 0 && sign > 0:
			return false
		case c > 0:
			sign = 1
		case c < 0:
			sign = -1
		}
	}
	return sign != 0
}

// Erode is the negative buffer of a simple ring: the part of it at least d away from its
// boundary. Convex rings are cut by half-planes. Other rings lose the band swept by a disc
// of radius d along the boundary, made of one rectangle per edge and one disc per vertex.
// The discs circumscribe the true circle so the result never exceeds the exact erosion.
func Erode(ring orb.Ring, d float64, quadSegs int) orb.MultiPolygon {
	if len(ring) < 3 {
		return nil
	}
	if !ring.Closed() {
		ring = append(ring.Clone(), ring[0])
	}
	if d <= 0 {
		return AssembleRings([]orb.Ring{ring})
	}
	if IsConvex(ring) {
		inner := ErodeConvex(ring, d)
		if inner == nil {
			return nil
		}
		return orb.MultiPolygon{{inner}}
	}

	var band geom.Polygonal
	add := func(r orb.Ring) {
		g := ToGeom(orb.Polygon{r})
		if band == nil {
			band = g
			return
		}
		band = band.Union(g)
	}
	for i := 0; i+1 < len(ring); i++ {
		a, b := ring[i], ring[i+1]
		length := math.Hypot(b[0]-a[0], b[1]-a[1])
		if length == 0 {
			continue
		}
		nx, ny := -(b[1]-a[1])/length*d, (b[0]-a[0])/length*d
		add(orb.Ring{
			{a[0] - nx, a[1] - ny},
			{b[0] - nx, b[1] - ny},
			{b[0] + nx, b[1] + ny},
			{a[0] + nx, a[1] + ny},
			{a[0] - nx, a[1] - ny},
		})
		add(disc(a, d, quadSegs))
	}
	if band == nil {
		return nil
	}

	return FromGeom(ToGeom(orb.Polygon{ring}).Difference(band))
}

// disc is a polygon containing the circle of radius r, rotated half a step off the axes so
// its vertices do not meet the corners of axis-aligned edge rectangles.
func disc(center orb.Point, r float64, quadSegs int) orb.Ring {
	if quadSegs < 1 {
		quadSegs = 1
	}
	n := 4 * quadSegs
	step := 2 * math.Pi / float64(n)
	outer := r / math.Cos(step/2)

	ring := make(orb.Ring, 0, n+1)
	for i := range n {
		theta := step * (float64(i) + 0.5)
		ring = append(ring, orb.Point{
			center[0] + outer*math.Cos(theta),
			center[1] + outer*math.Sin(theta),
		})
	}
	return append(ring, ring[0])
}
