// Package planting ranks street segments where new trees would add the most shade.
package planting

import (
	"cmp"
	"slices"

	"github.com/UnknownOlympus/shadeway/internal/coverage"
	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/spatial"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Params tune the ranking.
type Params struct {
	Spacing       float64 // Distance between candidate planting spots in meters.
	TreesInRow    int     // Minimum run of unshaded spots worth planting.
	MinShade      float64 // Minimum shade share the segment must reach once planted.
	MinTraffic    float64 // Segments with less traffic are ignored.
	TrafficWeight float64 // Weight of traffic against shade in the score, 1 is traffic only.
}

// DefaultParams returns the ranking defaults.
func DefaultParams() Params {
	return Params{Spacing: 8, TreesInRow: 5, MinShade: 0.75, MinTraffic: 0.5, TrafficWeight: 0.5}
}

// Candidate is a segment that can be planted.
type Candidate struct {
	Segment              models.Segment
	Spots                int     // Number of sampled spots.
	ShadePercent         float64 // Share of spots already shaded.
	Runs                 []int   // Lengths of plantable runs of unshaded spots.
	PossibleShadeGain    float64 // Share of spots that planting would shade.
	PossibleShadePercent float64 // Shade share once planted.
	Cost                 int     // Trees to plant.
	Score                float64
}

// Sample places spots every spacing meters along line, starting half a spacing in.
// Lines shorter than one spacing get a single spot at their middle.
func Sample(line orb.LineString, spacing float64) []orb.Point {
	length := planar.Length(line)
	if length == 0 || spacing <= 0 {
		return nil
	}
	if length < spacing {
		return []orb.Point{pointAt(line, length/2)}
	}

	var spots []orb.Point
	for d := spacing / 2; d < length; d += spacing {
		spots = append(spots, pointAt(line, d))
	}
	return spots
}

// PlantableRuns returns the lengths of runs of unshaded spots that are at least treesInRow long.
func PlantableRuns(shaded []bool, treesInRow int) []int {
	var runs []int
	count := 0
	for _, s := range shaded {
		if !s {
			count++
			continue
		}
		if count >= treesInRow {
			runs = append(runs, count)
		}
		count = 0
	}
	if count >= treesInRow {
		runs = append(runs, count)
	}
	return runs
}

// Rank evaluates scored segments against the shadow batch and returns the plantable ones,
// best score first.
func Rank(segments []models.Segment, index *spatial.Index, shadows []models.ShadowPolygon, params Params) []Candidate {
	var candidates []Candidate
	for _, seg := range segments {
		if seg.Traffic < params.MinTraffic {
			continue
		}
		spots := Sample(seg.Geometry, params.Spacing)
		if len(spots) == 0 {
			continue
		}

		shaded := make([]bool, len(spots))
		shadedCount := 0
		for i, p := range spots {
			shaded[i] = coverage.Shaded(index, shadows, p)
			if shaded[i] {
				shadedCount++
			}
		}

		c, ok := evaluate(seg, shaded, shadedCount, params)
		if ok {
			candidates = append(candidates, c)
		}
	}

	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.Segment.ID, b.Segment.ID)
	})

	return candidates
}

func evaluate(seg models.Segment, shaded []bool, shadedCount int, params Params) (Candidate, bool) {
	total := float64(len(shaded))
	shadePercent := float64(shadedCount) / total
	if shadePercent >= params.MinShade {
		return Candidate{}, false
	}

	runs := PlantableRuns(shaded, params.TreesInRow)
	if len(runs) == 0 {
		return Candidate{}, false
	}
	cost := 0
	for _, r := range runs {
		cost += r
	}

	gain := float64(cost) / total
	possible := shadePercent + gain
	if possible < params.MinShade {
		return Candidate{}, false
	}

	return Candidate{
		Segment:              seg,
		Spots:                len(shaded),
		ShadePercent:         shadePercent,
		Runs:                 runs,
		PossibleShadeGain:    gain,
		PossibleShadePercent: possible,
		Cost:                 cost,
		Score:                (1-params.TrafficWeight)*possible + params.TrafficWeight*seg.Traffic,
	}, true
}

// Select keeps the best ranked candidates while their cumulative cost fits the budget.
func Select(ranked []Candidate, budget int) []Candidate {
	var (
		selected []Candidate
		spent    int
	)
	for _, c := range ranked {
		if spent+c.Cost > budget {
			break
		}
		spent += c.Cost
		selected = append(selected, c)
	}
	return selected
}

func pointAt(line orb.LineString, distance float64) orb.Point {
	walked := 0.0
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		step := planar.Distance(a, b)
		if step > 0 && walked+step >= distance {
			t := (distance - walked) / step
			return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
		}
		walked += step
	}
	return line[len(line)-1]
}
