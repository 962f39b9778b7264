package models

import (
	"time"

	"github.com/paulmach/orb"
)

// ShadowKind is the kind of object that cast a shadow.
type ShadowKind string

const (
	ShadowTree     ShadowKind = "tree"
	ShadowBuilding ShadowKind = "building"
)

// ShadowPolygon is a shadow footprint tagged with its source and the instant it was computed for.
// It is never mutated after creation.
type ShadowPolygon struct {
	SourceID    int64
	Kind        ShadowKind
	ComputedFor time.Time
	Geometry    orb.MultiPolygon
	Frame       Frame
}

// Bound returns the bounding box of the shadow geometry.
func (s ShadowPolygon) Bound() orb.Bound {
	return s.Geometry.Bound()
}

// Empty reports whether the shadow has no polygon to intersect with.
func (s ShadowPolygon) Empty() bool {
	for _, poly := range s.Geometry {
		if len(poly) > 0 && len(poly[0]) >= 4 {
			return false
		}
	}
	return true
}
