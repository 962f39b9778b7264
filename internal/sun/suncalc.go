package sun

import (
	"time"

	"github.com/sixdouglas/suncalc"
)

func suncalcPosition(ts time.Time, lat, lng float64) Position {
	p := suncalc.GetPosition(ts, lat, lng)
	return Position{Azimuth: p.Azimuth, Altitude: p.Altitude}
}
