package coverage_test

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/UnknownOlympus/shadeway/internal/coverage"
	"github.com/UnknownOlympus/shadeway/internal/geo"
	"github.com/UnknownOlympus/shadeway/internal/metrics"
	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/spatial"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func rect(id int64, minX, minY, maxX, maxY float64) models.ShadowPolygon {
	ring := orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}
	return models.ShadowPolygon{
		SourceID: id,
		Kind:     models.ShadowTree,
		Geometry: orb.MultiPolygon{{ring}},
		Frame:    models.FrameMetric,
	}
}

func newEngine(workers int) (*coverage.Engine, *metrics.Metrics) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return coverage.NewEngine(slog.Default(), m, workers, 0), m
}

func score(
	t *testing.T,
	engine *coverage.Engine,
	segments []models.Segment,
	shadows []models.ShadowPolygon,
) ([]models.Segment, []models.ObjectError) {
	t.Helper()
	index, err := spatial.Build(shadows)
	require.NoError(t, err)
	scored, failed, err := engine.Score(t.Context(), segments, index, shadows)
	require.NoError(t, err)
	return scored, failed
}

func TestScore(t *testing.T) {
	t.Parallel()

	t.Run("segment fully in shadow", func(t *testing.T) {
		t.Parallel()
		engine, _ := newEngine(2)
		seg := models.NewSegment(1, 10, 20, orb.LineString{{0, 5}, {100, 5}})

		scored, failed := score(t, engine, []models.Segment{seg}, []models.ShadowPolygon{rect(1, -1, 0, 101, 10)})

		require.Empty(t, failed)
		require.Len(t, scored, 1)
		assert.InDelta(t, 100.0, scored[0].CoveredLength, 1e-9)
		assert.InDelta(t, 1.0, scored[0].CoveredFraction, 1e-12)
	})

	t.Run("overlapping shadows are not counted twice", func(t *testing.T) {
		t.Parallel()
		engine, _ := newEngine(1)
		seg := models.NewSegment(1, 10, 20, orb.LineString{{0, 5}, {100, 5}})
		shadows := []models.ShadowPolygon{rect(1, 10, 0, 40, 10), rect(2, 30, 0, 60, 10), rect(3, 80, 0, 90, 10)}

		scored, _ := score(t, engine, []models.Segment{seg}, shadows)

		assert.InDelta(t, 60.0, scored[0].CoveredLength, 1e-9)
		assert.InDelta(t, 0.6, scored[0].CoveredFraction, 1e-12)
	})

	t.Run("no candidates", func(t *testing.T) {
		t.Parallel()
		engine, _ := newEngine(1)
		seg := models.NewSegment(1, 10, 20, orb.LineString{{0, 5}, {100, 5}})

		scored, _ := score(t, engine, []models.Segment{seg}, []models.ShadowPolygon{rect(1, 500, 500, 510, 510)})

		assert.Zero(t, scored[0].CoveredLength)
		assert.Zero(t, scored[0].CoveredFraction)
	})

	t.Run("stored length shorter than geometry is clamped", func(t *testing.T) {
		t.Parallel()
		engine, _ := newEngine(1)
		seg := models.NewSegment(1, 10, 20, orb.LineString{{0, 5}, {100, 5}})
		seg.Length = 99.5

		scored, _ := score(t, engine, []models.Segment{seg}, []models.ShadowPolygon{rect(1, -1, 0, 101, 10)})

		assert.InDelta(t, 99.5, scored[0].CoveredLength, 1e-12)
		assert.InDelta(t, 1.0, scored[0].CoveredFraction, 1e-12)
	})

	t.Run("degenerate segments are reported and skipped", func(t *testing.T) {
		t.Parallel()
		engine, m := newEngine(3)
		segments := []models.Segment{
			models.NewSegment(1, 10, 20, orb.LineString{{0, 5}, {100, 5}}),
			models.NewSegment(2, 20, 30, orb.LineString{{100, 5}, {100, 5}}),
			models.NewSegment(3, 30, 40, orb.LineString{{100, 5}, {100, 50}}),
		}

		scored, failed := score(t, engine, segments, []models.ShadowPolygon{rect(1, -1, 0, 101, 10)})

		require.Len(t, scored, 2)
		assert.Equal(t, int64(1), scored[0].ID)
		assert.Equal(t, int64(3), scored[1].ID)
		require.Len(t, failed, 1)
		assert.Equal(t, int64(2), failed[0].ID)
		require.ErrorIs(t, failed[0], models.ErrDegenerateGeometry)
		assert.InDelta(t, 2.0, testutil.ToFloat64(m.SegmentsScored.WithLabelValues("success")), 0)
		assert.InDelta(t, 1.0, testutil.ToFloat64(m.SegmentsScored.WithLabelValues("failure")), 0)
		assert.Zero(t, testutil.ToFloat64(m.ActiveWorkers))
	})

	t.Run("frame mismatch", func(t *testing.T) {
		t.Parallel()
		engine, _ := newEngine(1)
		seg := models.NewSegment(1, 10, 20, orb.LineString{{0, 5}, {100, 5}})
		seg.Frame = models.FrameGeographic
		index, err := spatial.Build(nil)
		require.NoError(t, err)

		_, _, err = engine.Score(t.Context(), []models.Segment{seg}, index, nil)
		require.ErrorIs(t, err, models.ErrFrameMismatch)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		engine, _ := newEngine(2)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		index, err := spatial.Build(nil)
		require.NoError(t, err)

		_, _, err = engine.Score(ctx, []models.Segment{models.NewSegment(1, 1, 2, orb.LineString{{0, 0}, {1, 0}})}, index, nil)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestCoveredLength(t *testing.T) {
	t.Parallel()

	line := orb.LineString{{0, 0}, {100, 0}}

	tests := []struct {
		name       string
		candidates []orb.MultiPolygon
		want       float64
	}{
		{"none", nil, 0},
		{"two disjoint shadows", []orb.MultiPolygon{rect(1, 0, -5, 10, 5).Geometry, rect(2, 30, -5, 40, 5).Geometry}, 20},
		{"fully shaded", []orb.MultiPolygon{rect(1, -10, -5, 110, 5).Geometry}, 100},
		{"nested shadows count once", []orb.MultiPolygon{rect(1, 10, -5, 50, 5).Geometry, rect(2, 20, -2, 30, 2).Geometry}, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, coverage.CoveredLength(line, tt.candidates), 1e-9)
		})
	}
}

func TestScore_Properties(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(7, 11))

	var shadows []models.ShadowPolygon
	for i := range 80 {
		c := orb.Point{rng.Float64() * 500, rng.Float64() * 500}
		shadows = append(shadows, models.ShadowPolygon{
			SourceID: int64(i),
			Kind:     models.ShadowTree,
			Geometry: orb.MultiPolygon{{geo.Circle(c, 2+rng.Float64()*10, 8)}},
			Frame:    models.FrameMetric,
		})
	}
	var segments []models.Segment
	for i := range 200 {
		a := orb.Point{rng.Float64() * 500, rng.Float64() * 500}
		b := orb.Point{a[0] + rng.Float64()*60 - 30, a[1] + rng.Float64()*60 - 30}
		mid := orb.Point{(a[0] + b[0]) / 2, a[1]}
		segments = append(segments, models.NewSegment(int64(i), int64(2*i), int64(2*i+1), orb.LineString{a, mid, b}))
	}

	serial, _ := newEngine(1)
	parallel, _ := newEngine(8)
	first, failed := score(t, serial, segments, shadows)
	require.Empty(t, failed)
	second, _ := score(t, parallel, segments, shadows)
	third, _ := score(t, parallel, segments, shadows)

	require.Len(t, first, len(segments))
	covered := 0
	for i := range first {
		assert.GreaterOrEqual(t, first[i].CoveredLength, 0.0)
		assert.LessOrEqual(t, first[i].CoveredLength, first[i].Length+coverage.DefaultEpsilon)
		assert.Equal(t, first[i].CoveredLength, second[i].CoveredLength)
		assert.Equal(t, second[i].CoveredLength, third[i].CoveredLength)
		if first[i].CoveredLength > 0 {
			covered++
		}
	}
	assert.Positive(t, covered)
}

func TestShaded(t *testing.T) {
	t.Parallel()
	shadows := []models.ShadowPolygon{rect(1, 0, 0, 10, 10)}
	index, err := spatial.Build(shadows)
	require.NoError(t, err)

	assert.True(t, coverage.Shaded(index, shadows, orb.Point{5, 5}))
	assert.True(t, coverage.Shaded(index, shadows, orb.Point{10, 5}))
	assert.False(t, coverage.Shaded(index, shadows, orb.Point{11, 5}))
}
