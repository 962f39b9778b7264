package sun_test

import (
	"math"
	"testing"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/sun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var copenhagen = models.Coordinates{Longitude: 12.5683, Latitude: 55.6761}

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("midsummer noon", func(t *testing.T) {
		t.Parallel()
		pos, err := sun.Resolve(copenhagen, time.Date(2023, time.June, 21, 11, 10, 0, 0, time.UTC))

		require.NoError(t, err)
		// solar noon altitude is 90 - 55.68 + 23.44 degrees
		assert.InDelta(t, 57.76*math.Pi/180, pos.Altitude, 0.02)
		assert.InDelta(t, 0.0, pos.Azimuth, 0.1)
	})

	t.Run("before sunrise", func(t *testing.T) {
		t.Parallel()
		_, err := sun.Resolve(copenhagen, time.Date(2023, time.December, 21, 5, 0, 0, 0, time.UTC))

		require.ErrorIs(t, err, sun.ErrBelowHorizon)
	})

	t.Run("zone does not matter, the instant does", func(t *testing.T) {
		t.Parallel()
		cet := time.FixedZone("CEST", 2*60*60)
		utc, errUTC := sun.Resolve(copenhagen, time.Date(2023, time.June, 21, 9, 0, 0, 0, time.UTC))
		local, errLocal := sun.Resolve(copenhagen, time.Date(2023, time.June, 21, 11, 0, 0, 0, cet))

		require.NoError(t, errUTC)
		require.NoError(t, errLocal)
		assert.Equal(t, utc, local)
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()
		_, err := sun.Resolve(models.Coordinates{Longitude: 0, Latitude: 95}, time.Now())
		require.ErrorIs(t, err, sun.ErrInvalidLocation)

		_, err = sun.Resolve(copenhagen, time.Time{})
		require.ErrorIs(t, err, sun.ErrInvalidTimestamp)
	})
}

func TestResolver(t *testing.T) {
	t.Parallel()

	calls := 0
	resolver := sun.NewResolver(func(_ time.Time, lat, _ float64) sun.Position {
		calls++
		if lat < 0 {
			return sun.Position{Azimuth: 1, Altitude: -0.1}
		}
		return sun.Position{Azimuth: 1, Altitude: 0.5}
	})
	ts := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

	first, err := resolver.Resolve(copenhagen, ts)
	require.NoError(t, err)
	second, err := resolver.Resolve(copenhagen, ts.In(time.FixedZone("X", 3600)))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	south := models.Coordinates{Longitude: 0, Latitude: -10}
	_, err = resolver.Resolve(south, ts)
	require.ErrorIs(t, err, sun.ErrBelowHorizon)
	_, err = resolver.Resolve(south, ts)
	require.ErrorIs(t, err, sun.ErrBelowHorizon)
	assert.Equal(t, 3, calls)
}
