// Package spatial provides the broad-phase bounding box index over shadow polygons.
package spatial

import (
	"fmt"
	"slices"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

const (
	minChildren = 25
	maxChildren = 50
	// touchTolerance widens query boxes so boxes that only touch are still reported.
	touchTolerance = 1e-6
)

type entry struct {
	id   int
	rect rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// Index answers which shadows have a bounding box intersecting a query box. Ids are
// positions in the slice the index was built from. It is read-only after Build and safe
// for concurrent queries.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// Build bulk-loads an index over shadows. Empty shadows are left out; an empty batch
// yields an index that never returns candidates.
func Build(shadows []models.ShadowPolygon) (*Index, error) {
	objs := make([]rtreego.Spatial, 0, len(shadows))
	for i, s := range shadows {
		if s.Empty() {
			continue
		}
		rect, err := toRect(s.Bound())
		if err != nil {
			return nil, fmt.Errorf("failed to index shadow %d of %s %d: %w", i, s.Kind, s.SourceID, err)
		}
		objs = append(objs, &entry{id: i, rect: rect})
	}

	return &Index{tree: rtreego.NewTree(2, minChildren, maxChildren, objs...), size: len(objs)}, nil
}

// Len returns the number of indexed shadows.
func (ix *Index) Len() int {
	return ix.size
}

// Query returns the ids of shadows whose bounding box intersects box, in ascending order.
// Candidates still need an exact geometric test.
func (ix *Index) Query(box orb.Bound) []int {
	if ix == nil || ix.size == 0 || box.IsEmpty() {
		return nil
	}
	rect, err := toRect(box.Pad(touchTolerance))
	if err != nil {
		return nil
	}

	found := ix.tree.SearchIntersect(rect)
	ids := make([]int, 0, len(found))
	for _, obj := range found {
		ids = append(ids, obj.(*entry).id)
	}
	slices.Sort(ids)

	return ids
}

func toRect(b orb.Bound) (rtreego.Rect, error) {
	return rtreego.NewRectFromPoints(rtreego.Point{b.Min[0], b.Min[1]}, rtreego.Point{b.Max[0], b.Max[1]})
}
