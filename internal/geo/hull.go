package geo

import (
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// areaTolerance is the smallest area treated as a real polygon, in square meters.
const areaTolerance = 1e-9

// ConvexHull returns the counter-clockwise closed hull of the points, or nil when the
// points are collinear or fewer than three.
func ConvexHull(points []orb.Point) orb.Ring {
	pts := slices.Clone(points)
	slices.SortFunc(pts, func(a, b orb.Point) int {
		if a[0] != b[0] {
			return cmpFloat(a[0], b[0])
		}
		return cmpFloat(a[1], b[1])
	})
	pts = slices.Compact(pts)
	if len(pts) < 3 {
		return nil
	}

	hull := make([]orb.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// the last point repeats the first, which closes the ring
	if len(hull) < 4 {
		return nil
	}

	ring := orb.Ring(hull)
	if planar.Area(orb.Polygon{ring}) <= areaTolerance {
		return nil
	}

	return ring
}

// ErodeConvex shrinks the convex hull of ring inwards by d. The result is the
// intersection of every hull edge's half-plane moved d inwards, which is the exact
// negative buffer of a convex polygon. It returns nil when nothing is left.
func ErodeConvex(ring orb.Ring, d float64) orb.Ring {
	hull := ConvexHull(ring)
	if hull == nil {
		return nil
	}
	if d <= 0 {
		return hull
	}

	poly := slices.Clone([]orb.Point(hull[:len(hull)-1]))
	for i := 0; i < len(hull)-1 && len(poly) > 0; i++ {
		a, b := hull[i], hull[i+1]
		ex, ey := b[0]-a[0], b[1]-a[1]
		length := math.Hypot(ex, ey)
		if length == 0 {
			continue
		}
		// left normal points inside a counter-clockwise ring
		nx, ny := -ey/length, ex/length
		side := func(p orb.Point) float64 {
			return (p[0]-a[0])*nx + (p[1]-a[1])*ny - d
		}
		poly = clipHalfPlane(poly, side)
	}
	if len(poly) < 3 {
		return nil
	}

	out := append(orb.Ring(poly), poly[0])
	if planar.Area(orb.Polygon{out}) <= areaTolerance {
		return nil
	}

	return out
}

// clipHalfPlane keeps the part of the open polygon where side(p) >= 0.
func clipHalfPlane(poly []orb.Point, side func(orb.Point) float64) []orb.Point {
	out := make([]orb.Point, 0, len(poly)+1)
	for i := range poly {
		cur, next := poly[i], poly[(i+1)%len(poly)]
		sc, sn := side(cur), side(next)
		if sc >= 0 {
			out = append(out, cur)
		}
		if (sc >= 0) != (sn >= 0) {
			t := sc / (sc - sn)
			out = append(out, lerp(cur, next, t))
		}
	}

	return out
}

// Translate returns a copy of ring moved by (dx, dy).
func Translate(ring orb.Ring, dx, dy float64) orb.Ring {
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		out[i] = orb.Point{p[0] + dx, p[1] + dy}
	}
	return out
}

// Circle approximates a circle with 4*quadSegs vertices, counter-clockwise and closed.
func Circle(center orb.Point, radius float64, quadSegs int) orb.Ring {
	if quadSegs < 1 {
		quadSegs = 1
	}
	n := 4 * quadSegs
	ring := make(orb.Ring, 0, n+1)
	for i := range n {
		theta := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, orb.Point{
			center[0] + radius*math.Cos(theta),
			center[1] + radius*math.Sin(theta),
		})
	}

	return append(ring, ring[0])
}

// Capsule buffers the segment a-b by radius: the hull of two end discs.
func Capsule(a, b orb.Point, radius float64, quadSegs int) orb.Ring {
	if radius <= 0 {
		return nil
	}
	pts := append(Circle(a, radius, quadSegs), Circle(b, radius, quadSegs)...)
	return ConvexHull(pts)
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func lerp(a, b orb.Point, t float64) orb.Point {
	switch t {
	case 0:
		return a
	case 1:
		return b
	}
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
