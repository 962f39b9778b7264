package models

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateGeometry marks zero-length segments, empty polygons and non-finite measures.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	// ErrFrameMismatch is returned when geometries from different frames are combined.
	ErrFrameMismatch = errors.New("coordinate frame mismatch")
)

// ObjectKind names the kind of object an ObjectError refers to.
type ObjectKind string

const (
	KindTree     ObjectKind = "tree"
	KindBuilding ObjectKind = "building"
	KindSegment  ObjectKind = "segment"
)

// ObjectError reports a failure isolated to a single object of a batch.
type ObjectError struct {
	Kind ObjectKind
	ID   int64
	Err  error
}

func (e ObjectError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Kind, e.ID, e.Err)
}

func (e ObjectError) Unwrap() error {
	return e.Err
}
