package geo

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// AssembleRings groups loose rings into polygons. A ring nested inside an even number of
// other rings is a shell, an odd number makes it a hole of the smallest enclosing shell.
// Shells come out counter-clockwise and holes clockwise. Rings are closed if needed and
// rings without area are dropped.
func AssembleRings(rings []orb.Ring) orb.MultiPolygon {
	type entry struct {
		ring  orb.Ring
		area  float64
		depth int
	}

	entries := make([]entry, 0, len(rings))
	for _, r := range rings {
		if len(r) < 3 {
			continue
		}
		if !r.Closed() {
			r = append(r.Clone(), r[0])
		}
		area := math.Abs(planar.Area(orb.Polygon{r}))
		if area <= areaTolerance {
			continue
		}
		entries = append(entries, entry{ring: r, area: area})
	}
	// larger rings first so a shell precedes the holes it holds
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].area > entries[j].area })

	for i := range entries {
		first := entries[i].ring[0]
		for j := range i {
			if planar.RingContains(entries[j].ring, first) {
				entries[i].depth++
			}
		}
	}

	var (
		out    orb.MultiPolygon
		owners []int // index into entries of each polygon's shell
	)
	for i, e := range entries {
		if e.depth%2 == 0 {
			shell := e.ring
			if shell.Orientation() != orb.CCW {
				shell = shell.Clone()
				shell.Reverse()
			}
			out = append(out, orb.Polygon{shell})
			owners = append(owners, i)
			continue
		}

		hole := e.ring
		if hole.Orientation() != orb.CW {
			hole = hole.Clone()
			hole.Reverse()
		}
		// smallest shell containing the hole is the last matching one
		for k := len(out) - 1; k >= 0; k-- {
			if entries[owners[k]].depth == e.depth-1 && planar.RingContains(entries[owners[k]].ring, e.ring[0]) {
				out[k] = append(out[k], hole)
				break
			}
		}
	}

	return out
}
