package service

import (
	"context"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/metrics"
	"github.com/UnknownOlympus/shadeway/internal/mocks"
	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/planting"
	"github.com/UnknownOlympus/shadeway/internal/routing"
	"github.com/UnknownOlympus/shadeway/internal/sun"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var noon = time.Date(2025, time.June, 21, 12, 0, 0, 0, time.UTC)

// daylight puts the sun due south at 45 degrees during daytime hours and below the horizon at night.
func daylight(ts time.Time, _, _ float64) sun.Position {
	if ts.Hour() < 6 || ts.Hour() >= 20 {
		return sun.Position{Azimuth: 0, Altitude: -0.2}
	}
	return sun.Position{Azimuth: 0, Altitude: math.Pi / 4}
}

func fixtureSegments() []models.Segment {
	return []models.Segment{
		{ID: 1, NodeU: 1, NodeV: 2, Traffic: 0.9, Geometry: orb.LineString{{12.5000, 55.6000}, {12.5010, 55.6000}}},
		{ID: 2, NodeU: 2, NodeV: 3, Traffic: 0.1, Geometry: orb.LineString{{12.5010, 55.6000}, {12.5010, 55.6010}}},
	}
}

func fixtureTrees() []models.Tree {
	return []models.Tree{
		{ID: 7, Trunk: orb.Point{12.5005, 55.6000}, Height: 10, CrownRadius: 3, CrownRatio: 0.5},
		{ID: 8, Trunk: orb.Point{12.5005, 55.6005}, Height: -1, CrownRadius: 3, CrownRatio: 0.5},
	}
}

func fixtureBuildings() []models.Building {
	return []models.Building{
		{ID: 100, Footprint: orb.Polygon{{{12.502, 55.602}, {12.5021, 55.602}, {12.5021, 55.6021}, {12.502, 55.602}}}},
	}
}

func fixtureBuildingShadows() []models.ShadowPolygon {
	square := orb.MultiPolygon{{{{12.5019, 55.6019}, {12.5022, 55.6019}, {12.5022, 55.6022}, {12.5019, 55.6022}, {12.5019, 55.6019}}}}
	return []models.ShadowPolygon{
		{SourceID: 100, Kind: models.ShadowBuilding, ComputedFor: noon, Geometry: square},
		{SourceID: 999, Kind: models.ShadowBuilding, ComputedFor: noon, Geometry: square},
	}
}

func newTestService(t *testing.T, repo *mocks.Interface, provider *mocks.Provider) (*ShadeService, *metrics.Metrics) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	m := metrics.NewMetrics(prometheus.NewRegistry())

	opts := Options{
		Workers:      2,
		Interval:     time.Hour,
		RouteTimeout: time.Second,
		Calculator:   daylight,
		Clock:        func() time.Time { return noon },
	}
	if provider == nil {
		return NewShadeService(logger, repo, nil, "test", m, opts), m
	}
	return NewShadeService(logger, repo, provider, "test", m, opts), m
}

func expectWorld(repo *mocks.Interface) {
	repo.On("FetchSegments", mock.Anything).Return(fixtureSegments(), nil).Once()
	repo.On("FetchTrees", mock.Anything).Return(fixtureTrees(), nil).Once()
	repo.On("FetchBuildings", mock.Anything).Return(fixtureBuildings(), nil).Once()
}

func TestRefresh(t *testing.T) {
	t.Run("successful refresh", func(t *testing.T) {
		repo := mocks.NewInterface(t)
		svc, m := newTestService(t, repo, nil)

		expectWorld(repo)
		repo.On("FetchBuildingShadows", mock.Anything, noon).Return(fixtureBuildingShadows(), nil).Once()
		repo.On("SaveCoverage", mock.Anything, mock.AnythingOfType("models.CoverageRun"), mock.Anything).
			Return(nil).Once()

		snap, err := svc.Refresh(t.Context(), noon)

		require.NoError(t, err)
		require.Len(t, snap.Segments, 2)
		assert.Equal(t, 2, snap.Run.Shadows, "one tree and one matching building")
		assert.Equal(t, 1, snap.Run.Skipped, "the tree with negative height")
		assert.NotEmpty(t, snap.Run.ID)
		assert.Greater(t, snap.Segments[0].CoveredLength, 0.0)
		assert.LessOrEqual(t, snap.Segments[0].CoveredLength, snap.Segments[0].Length)
		assert.Zero(t, snap.Segments[1].CoveredLength)
		assert.InDelta(t, 63, snap.Segments[0].Length, 1)
		assert.Equal(t, models.FrameMetric, snap.Segments[0].Frame)

		published, err := svc.Snapshot()
		require.NoError(t, err)
		assert.Same(t, snap, published)
		assert.InDelta(t, float64(noon.Unix()), testutil.ToFloat64(m.LastRefresh), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.ShadowsProjected.WithLabelValues("tree", "failure")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.ShadowsProjected.WithLabelValues("building", "success")), 0)
	})

	t.Run("sun below the horizon keeps previous snapshot", func(t *testing.T) {
		repo := mocks.NewInterface(t)
		svc, _ := newTestService(t, repo, nil)
		night := time.Date(2025, time.June, 21, 23, 0, 0, 0, time.UTC)

		expectWorld(repo)

		_, err := svc.Refresh(t.Context(), night)

		require.ErrorIs(t, err, sun.ErrBelowHorizon)
		_, err = svc.Snapshot()
		require.ErrorIs(t, err, ErrNoSnapshot)
		repo.AssertNotCalled(t, "SaveCoverage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("save failure still publishes", func(t *testing.T) {
		repo := mocks.NewInterface(t)
		svc, _ := newTestService(t, repo, nil)

		expectWorld(repo)
		repo.On("FetchBuildingShadows", mock.Anything, noon).Return(nil, nil).Once()
		repo.On("SaveCoverage", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()

		snap, err := svc.Refresh(t.Context(), noon)

		require.ErrorIs(t, err, assert.AnError)
		require.NotNil(t, snap)
		_, err = svc.Snapshot()
		require.NoError(t, err)
	})

	t.Run("fetch segments error", func(t *testing.T) {
		repo := mocks.NewInterface(t)
		svc, _ := newTestService(t, repo, nil)

		repo.On("FetchSegments", mock.Anything).Return(nil, assert.AnError).Once()

		_, err := svc.Refresh(t.Context(), noon)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to load network")
	})

	t.Run("building solver error", func(t *testing.T) {
		repo := mocks.NewInterface(t)
		svc, _ := newTestService(t, repo, nil)

		expectWorld(repo)
		repo.On("FetchBuildingShadows", mock.Anything, noon).Return(nil, assert.AnError).Once()

		_, err := svc.Refresh(t.Context(), noon)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to solve building shadows")
	})
}

func refreshed(t *testing.T, provider *mocks.Provider) (*ShadeService, *metrics.Metrics) {
	t.Helper()
	repo := mocks.NewInterface(t)
	svc, m := newTestService(t, repo, provider)

	expectWorld(repo)
	repo.On("FetchBuildingShadows", mock.Anything, noon).Return(nil, nil).Once()
	repo.On("SaveCoverage", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.Refresh(t.Context(), noon)
	require.NoError(t, err)

	return svc, m
}

func TestRoute(t *testing.T) {
	ptr := func(v int64) *int64 { return &v }

	t.Run("no snapshot yet", func(t *testing.T) {
		svc, m := newTestService(t, mocks.NewInterface(t), nil)

		_, err := svc.Route(t.Context(), Endpoint{Node: ptr(1)}, Endpoint{Node: ptr(3)}, 0.5)

		require.ErrorIs(t, err, ErrNoSnapshot)
		assert.InDelta(t, 1, testutil.ToFloat64(m.RouteQueries.WithLabelValues("failure")), 0)
	})

	t.Run("between node ids", func(t *testing.T) {
		svc, m := refreshed(t, nil)

		res, err := svc.Route(t.Context(), Endpoint{Node: ptr(1)}, Endpoint{Node: ptr(3)}, 0.5)

		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, res.Route.SegmentIDs())
		assert.Equal(t, []int64{1, 2, 3}, res.Route.Nodes())
		assert.Equal(t, noon, res.ComputedFor)
		assert.InDelta(t, 1, testutil.ToFloat64(m.RouteQueries.WithLabelValues("success")), 0)
	})

	t.Run("between geographic points", func(t *testing.T) {
		svc, _ := refreshed(t, nil)
		from := &models.Coordinates{Longitude: 12.50001, Latitude: 55.60001}
		to := &models.Coordinates{Longitude: 12.5010, Latitude: 55.6009}

		res, err := svc.Route(t.Context(), Endpoint{Point: from}, Endpoint{Point: to}, 0)

		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Route.Start)
		assert.Equal(t, int64(3), res.Route.End)
	})

	t.Run("address endpoint", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		svc, m := refreshed(t, provider)

		provider.On("Geocode", mock.Anything, "Istedgade 1").
			Return(&models.Coordinates{Longitude: 12.5010, Latitude: 55.6010}, nil).Once()

		res, err := svc.Route(t.Context(), Endpoint{Node: ptr(1)}, Endpoint{Address: "Istedgade 1"}, 1)

		require.NoError(t, err)
		assert.Equal(t, int64(3), res.Route.End)
		assert.Equal(t, 1, testutil.CollectAndCount(m.GeocoderSeconds))
	})

	t.Run("address without geocoder", func(t *testing.T) {
		svc, _ := refreshed(t, nil)

		_, err := svc.Route(t.Context(), Endpoint{Node: ptr(1)}, Endpoint{Address: "Istedgade 1"}, 1)

		require.ErrorIs(t, err, ErrGeocoderUnavailable)
	})

	t.Run("empty endpoint", func(t *testing.T) {
		svc, _ := refreshed(t, nil)

		_, err := svc.Route(t.Context(), Endpoint{}, Endpoint{Node: ptr(3)}, 1)

		require.ErrorIs(t, err, ErrInvalidEndpoint)
	})

	t.Run("unknown node", func(t *testing.T) {
		svc, _ := refreshed(t, nil)

		_, err := svc.Route(t.Context(), Endpoint{Node: ptr(1)}, Endpoint{Node: ptr(42)}, 1)

		require.ErrorIs(t, err, routing.ErrUnknownNode)
	})
}

func TestSweep(t *testing.T) {
	repo := mocks.NewInterface(t)
	svc, _ := newTestService(t, repo, nil)
	night := time.Date(2025, time.June, 21, 2, 0, 0, 0, time.UTC)

	expectWorld(repo)
	repo.On("FetchBuildingShadows", mock.Anything, noon).Return(fixtureBuildingShadows(), nil).Once()

	var saved []models.SweepSample
	repo.On("SaveSweep", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(2).([]models.SweepSample) }).
		Return(nil).Once()

	res, err := svc.Sweep(t.Context(), []time.Time{noon, night})

	require.NoError(t, err)
	assert.Equal(t, []time.Time{night}, res.Skipped)
	require.Len(t, res.Samples, 2)
	assert.Equal(t, res.Samples, saved)
	for _, sample := range res.Samples {
		assert.Equal(t, noon, sample.ComputedFor)
		assert.LessOrEqual(t, sample.TreeCoveredLength, sample.CoveredLength+1e-9)
		assert.LessOrEqual(t, sample.CoveredLength, sample.Length)
	}
	assert.Greater(t, res.Samples[0].TreeCoveredLength, 0.0)
}

func TestPlan(t *testing.T) {
	t.Run("no snapshot yet", func(t *testing.T) {
		svc, _ := newTestService(t, mocks.NewInterface(t), nil)

		_, err := svc.Plan(t.Context(), planting.DefaultParams(), 10)

		require.ErrorIs(t, err, ErrNoSnapshot)
	})

	t.Run("busy sunny segment is selected", func(t *testing.T) {
		svc, _ := refreshed(t, nil)

		selected, err := svc.Plan(t.Context(), planting.DefaultParams(), 10)

		require.NoError(t, err)
		require.Len(t, selected, 1)
		assert.Equal(t, int64(1), selected[0].Segment.ID)
	})

	t.Run("budget too small", func(t *testing.T) {
		svc, _ := refreshed(t, nil)

		selected, err := svc.Plan(t.Context(), planting.DefaultParams(), 1)

		require.NoError(t, err)
		assert.Empty(t, selected)
	})

	t.Run("held snapshot", func(t *testing.T) {
		svc, _ := refreshed(t, nil)
		snap, err := svc.Snapshot()
		require.NoError(t, err)

		fromHeld := svc.PlanSnapshot(t.Context(), snap, planting.DefaultParams(), 10)
		fromLatest, err := svc.Plan(t.Context(), planting.DefaultParams(), 10)

		require.NoError(t, err)
		assert.Equal(t, fromLatest, fromHeld)
	})
}

func TestRun(t *testing.T) {
	repo := mocks.NewInterface(t)
	svc, _ := newTestService(t, repo, nil)

	expectWorld(repo)
	repo.On("FetchBuildingShadows", mock.Anything, noon).Return(nil, nil).Once()
	repo.On("SaveCoverage", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, err := svc.Snapshot()
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop after cancellation")
	}
}
