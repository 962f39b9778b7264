package models

import "fmt"

// Frame tags the coordinate reference frame a geometry is expressed in.
type Frame int

const (
	// FrameGeographic is WGS84 longitude/latitude in degrees, used for storage and display only.
	FrameGeographic Frame = iota
	// FrameMetric is a local planar projection in meters. All length and intersection math happens here.
	FrameMetric
)

func (f Frame) String() string {
	switch f {
	case FrameGeographic:
		return "geographic"
	case FrameMetric:
		return "metric"
	default:
		return fmt.Sprintf("frame(%d)", int(f))
	}
}

// RequireFrame returns ErrFrameMismatch when got differs from want.
func RequireFrame(want, got Frame) error {
	if want != got {
		return fmt.Errorf("%w: expected %s, got %s", ErrFrameMismatch, want, got)
	}
	return nil
}
