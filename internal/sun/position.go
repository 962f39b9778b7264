// Package sun resolves the position of the sun for a place and an instant.
package sun

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/models"
)

var (
	// ErrBelowHorizon is returned when the sun does not cast shadows at the requested instant.
	ErrBelowHorizon = errors.New("sun is below the horizon")
	// ErrInvalidLocation is returned for coordinates outside the WGS84 range.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrInvalidTimestamp is returned for the zero time.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// Position is the sun direction seen from the ground, in radians.
// Azimuth is measured from south towards west, altitude above the horizon.
type Position struct {
	Azimuth  float64
	Altitude float64
}

// Calculator is an astronomy routine returning azimuth and altitude for a place and instant.
type Calculator func(ts time.Time, lat, lng float64) Position

// Resolve computes the sun position for loc at ts with the default astronomy routine.
func Resolve(loc models.Coordinates, ts time.Time) (Position, error) {
	return resolve(suncalcPosition, loc, ts)
}

func resolve(calc Calculator, loc models.Coordinates, ts time.Time) (Position, error) {
	if ts.IsZero() {
		return Position{}, ErrInvalidTimestamp
	}
	if math.Abs(loc.Latitude) > 90 || math.Abs(loc.Longitude) > 180 ||
		math.IsNaN(loc.Latitude) || math.IsNaN(loc.Longitude) {
		return Position{}, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidLocation, loc.Latitude, loc.Longitude)
	}

	pos := calc(ts.UTC(), loc.Latitude, loc.Longitude)
	if !(pos.Altitude > 0) {
		return pos, fmt.Errorf("%w at %s (altitude %.4f rad)", ErrBelowHorizon, ts.UTC().Format(time.RFC3339), pos.Altitude)
	}

	return pos, nil
}

type cacheKey struct {
	lat, lng float64
	unix     int64
}

// Resolver memoises positions per (location, instant) so every object sharing a
// timestamp reuses one computation. It is safe for concurrent use.
type Resolver struct {
	calc  Calculator
	mu    sync.Mutex
	cache map[cacheKey]Position
}

// NewResolver returns a Resolver backed by calc, or by the default routine when calc is nil.
func NewResolver(calc Calculator) *Resolver {
	if calc == nil {
		calc = suncalcPosition
	}
	return &Resolver{calc: calc, cache: make(map[cacheKey]Position)}
}

// Resolve returns the cached position or computes it. Failures are not cached.
func (r *Resolver) Resolve(loc models.Coordinates, ts time.Time) (Position, error) {
	key := cacheKey{lat: loc.Latitude, lng: loc.Longitude, unix: ts.UnixNano()}

	r.mu.Lock()
	pos, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return pos, nil
	}

	pos, err := resolve(r.calc, loc, ts)
	if err != nil {
		return pos, err
	}

	r.mu.Lock()
	r.cache[key] = pos
	r.mu.Unlock()

	return pos, nil
}
