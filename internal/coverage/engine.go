// Package coverage measures how much of each network segment lies in shadow.
package coverage

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/UnknownOlympus/shadeway/internal/geo"
	"github.com/UnknownOlympus/shadeway/internal/metrics"
	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/spatial"
	"github.com/paulmach/orb"
)

// DefaultEpsilon is the tolerance allowed above a segment length before clamping is logged.
const DefaultEpsilon = 1e-6

// Engine scores segments against a shadow batch with a pool of workers.
type Engine struct {
	log        *slog.Logger     // Logger for per-segment warnings
	metrics    *metrics.Metrics // Metrics for scored segments and active workers
	numWorkers int              // Number of concurrent workers
	epsilon    float64          // Tolerance above length before a clamp is reported
}

// NewEngine creates a coverage Engine.
func NewEngine(log *slog.Logger, metrics *metrics.Metrics, numWorkers int, epsilon float64) *Engine {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Engine{log: log, metrics: metrics, numWorkers: numWorkers, epsilon: epsilon}
}

type result struct {
	segment models.Segment
	err     error
}

// Score returns copies of segments with CoveredLength and CoveredFraction set, in input
// order. Degenerate segments are left out of the result and reported per id. Geometries
// outside the metric frame fail the whole call with models.ErrFrameMismatch.
func (e *Engine) Score(
	ctx context.Context,
	segments []models.Segment,
	index *spatial.Index,
	shadows []models.ShadowPolygon,
) ([]models.Segment, []models.ObjectError, error) {
	for _, s := range shadows {
		if err := models.RequireFrame(models.FrameMetric, s.Frame); err != nil {
			return nil, nil, fmt.Errorf("failed to score segments: shadow of %s %d: %w", s.Kind, s.SourceID, err)
		}
	}
	for _, seg := range segments {
		if err := models.RequireFrame(models.FrameMetric, seg.Frame); err != nil {
			return nil, nil, fmt.Errorf("failed to score segments: segment %d: %w", seg.ID, err)
		}
	}

	results := make([]result, len(segments))
	jobs := make(chan int, len(segments))
	var wgr sync.WaitGroup

	for i := 1; i <= e.numWorkers; i++ {
		wgr.Add(1)
		go e.worker(ctx, &wgr, jobs, segments, index, shadows, results)
	}
	for i := range segments {
		jobs <- i
	}
	close(jobs)
	wgr.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to score segments: %w", err)
	}

	scored := make([]models.Segment, 0, len(segments))
	var failed []models.ObjectError
	for i, res := range results {
		if res.err != nil {
			e.log.WarnContext(ctx, "Skipping segment", "segment", segments[i].ID, "error", res.err)
			failed = append(failed, models.ObjectError{Kind: models.KindSegment, ID: segments[i].ID, Err: res.err})
			continue
		}
		scored = append(scored, res.segment)
	}

	return scored, failed, nil
}

// worker scores the segments whose positions arrive on jobs. Each position is written by
// exactly one worker.
func (e *Engine) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan int,
	segments []models.Segment,
	index *spatial.Index,
	shadows []models.ShadowPolygon,
	results []result,
) {
	defer wg.Done()
	for i := range jobs {
		if ctx.Err() != nil {
			continue
		}
		e.metrics.ActiveWorkers.Inc()

		seg, err := e.scoreOne(segments[i], index, shadows)
		results[i] = result{segment: seg, err: err}
		if err != nil {
			e.metrics.SegmentsScored.WithLabelValues("failure").Inc()
		} else {
			e.metrics.SegmentsScored.WithLabelValues("success").Inc()
		}

		e.metrics.ActiveWorkers.Dec()
	}
}

func (e *Engine) scoreOne(seg models.Segment, index *spatial.Index, shadows []models.ShadowPolygon) (models.Segment, error) {
	if len(seg.Geometry) < 2 || !(seg.Length > 0) || math.IsInf(seg.Length, 0) {
		return seg, fmt.Errorf("%w: segment length %v", models.ErrDegenerateGeometry, seg.Length)
	}

	covered := CoveredLength(seg.Geometry, Candidates(index, shadows, seg.Geometry.Bound()))
	if covered > seg.Length {
		if covered > seg.Length+e.epsilon {
			e.log.Debug("Clamping covered length", "segment", seg.ID, "covered", covered, "length", seg.Length)
		}
		covered = seg.Length
	}

	seg.CoveredLength = covered
	seg.CoveredFraction = covered / seg.Length

	return seg, nil
}

// Candidates returns the geometries of the shadows whose boxes intersect box.
func Candidates(index *spatial.Index, shadows []models.ShadowPolygon, box orb.Bound) []orb.MultiPolygon {
	ids := index.Query(box)
	if len(ids) == 0 {
		return nil
	}
	polys := make([]orb.MultiPolygon, 0, len(ids))
	for _, id := range ids {
		polys = append(polys, shadows[id].Geometry)
	}
	return polys
}

// CoveredLength is the length of line inside the union of the candidate shadows.
func CoveredLength(line orb.LineString, candidates []orb.MultiPolygon) float64 {
	if len(candidates) == 0 {
		return 0
	}
	return geo.CoveredLength(line, candidates)
}

// Shaded reports whether p lies in any shadow of the batch.
func Shaded(index *spatial.Index, shadows []models.ShadowPolygon, p orb.Point) bool {
	return geo.Contains(Candidates(index, shadows, orb.Bound{Min: p, Max: p}), p)
}
