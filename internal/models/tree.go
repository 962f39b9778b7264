package models

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Tree is a single tree record. It is immutable once loaded.
type Tree struct {
	ID          int64       // ID of the tree in the source dataset.
	Trunk       orb.Point   // Trunk position.
	Canopy      orb.Polygon // Horizontal footprint of the foliage.
	Height      float64     // Total height in meters.
	CrownRadius float64     // Radius of the crown in meters.
	CrownRatio  float64     // Share of the height occupied by the crown, in (0,1).
	Frame       Frame       // Frame of Trunk and Canopy.
}

// Validate checks the attribute invariants a shadow can be projected from.
func (t Tree) Validate() error {
	switch {
	case !(t.Height > 0) || math.IsInf(t.Height, 0):
		return fmt.Errorf("%w: height must be positive, got %v", ErrDegenerateGeometry, t.Height)
	case !(t.CrownRadius > 0) || math.IsInf(t.CrownRadius, 0):
		return fmt.Errorf("%w: crown radius must be positive, got %v", ErrDegenerateGeometry, t.CrownRadius)
	case !(t.CrownRatio > 0 && t.CrownRatio < 1):
		return fmt.Errorf("%w: crown ratio must be in (0,1), got %v", ErrDegenerateGeometry, t.CrownRatio)
	case len(t.Canopy) == 0 || len(t.Canopy[0]) < 4:
		return fmt.Errorf("%w: empty canopy", ErrDegenerateGeometry)
	}

	return nil
}

// Building is a footprint handed to an external building shadow solver.
type Building struct {
	ID        int64
	Footprint orb.Polygon
	Height    float64
	Frame     Frame
}
