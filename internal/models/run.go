package models

import "time"

// CoverageRun describes one scoring pass over the network.
type CoverageRun struct {
	ID          string    // ID is the unique identifier of the run.
	ComputedFor time.Time // ComputedFor is the instant shadows were cast for.
	Azimuth     float64   // Azimuth of the sun in radians.
	Altitude    float64   // Altitude of the sun in radians.
	Shadows     int       // Shadows is the number of shadows indexed.
	Segments    int       // Segments is the number of scored segments.
	Skipped     int       // Skipped is the number of objects reported as failed.
}

// SweepSample records coverage of one segment at one instant of a time-of-day sweep.
type SweepSample struct {
	SegmentID         int64
	ComputedFor       time.Time
	CoveredLength     float64 // Covered by trees and buildings.
	TreeCoveredLength float64 // Covered by trees only.
	Length            float64
}
