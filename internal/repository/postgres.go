package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/paulmach/orb/encoding/wkt"
)

// FetchSegments loads the walkable network in the geographic frame. Lengths are left
// unset; they are measured once the geometry is projected.
func (r *Repository) FetchSegments(ctx context.Context) ([]models.Segment, error) {
	var segments []models.Segment
	query := `
		SELECT segment_id, node_u, node_v, COALESCE(traffic, 0), ST_AsText(geom)
		FROM public.network_segments
		ORDER BY segment_id;
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query network segments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seg  models.Segment
			geom string
		)
		if errScan := rows.Scan(&seg.ID, &seg.NodeU, &seg.NodeV, &seg.Traffic, &geom); errScan != nil {
			return nil, fmt.Errorf("failed to scan network segment: %w", errScan)
		}
		seg.Geometry, err = wkt.UnmarshalLineString(geom)
		if err != nil {
			return nil, fmt.Errorf("failed to parse geometry of segment %d: %w", seg.ID, err)
		}
		seg.Frame = models.FrameGeographic
		segments = append(segments, seg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	r.log.DebugContext(ctx, "Network segments loaded", "count", len(segments))

	return segments, nil
}

// FetchTrees loads tree records. Trees without a surveyed canopy get a nil canopy and
// are expected to be given a circular one around the trunk.
func (r *Repository) FetchTrees(ctx context.Context) ([]models.Tree, error) {
	var trees []models.Tree
	query := `
		SELECT tree_id, height, crown_radius, crown_ratio, ST_AsText(trunk), ST_AsText(canopy)
		FROM public.trees
		WHERE height > 0
		ORDER BY tree_id;
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tree   models.Tree
			trunk  string
			canopy *string
		)
		errScan := rows.Scan(&tree.ID, &tree.Height, &tree.CrownRadius, &tree.CrownRatio, &trunk, &canopy)
		if errScan != nil {
			return nil, fmt.Errorf("failed to scan tree: %w", errScan)
		}
		if tree.Trunk, err = wkt.UnmarshalPoint(trunk); err != nil {
			return nil, fmt.Errorf("failed to parse trunk of tree %d: %w", tree.ID, err)
		}
		if canopy != nil {
			if tree.Canopy, err = wkt.UnmarshalPolygon(*canopy); err != nil {
				return nil, fmt.Errorf("failed to parse canopy of tree %d: %w", tree.ID, err)
			}
		}
		tree.Frame = models.FrameGeographic
		trees = append(trees, tree)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return trees, nil
}

// FetchBuildings loads building footprints for the building shadow solver.
func (r *Repository) FetchBuildings(ctx context.Context) ([]models.Building, error) {
	var buildings []models.Building
	query := `
		SELECT building_id, height, ST_AsText(footprint)
		FROM public.buildings
		ORDER BY building_id;
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query buildings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			building  models.Building
			footprint string
		)
		if errScan := rows.Scan(&building.ID, &building.Height, &footprint); errScan != nil {
			return nil, fmt.Errorf("failed to scan building: %w", errScan)
		}
		if building.Footprint, err = wkt.UnmarshalPolygon(footprint); err != nil {
			return nil, fmt.Errorf("failed to parse footprint of building %d: %w", building.ID, err)
		}
		building.Frame = models.FrameGeographic
		buildings = append(buildings, building)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return buildings, nil
}

// FetchBuildingShadows loads the building shadows the external solver stored for an instant.
func (r *Repository) FetchBuildingShadows(ctx context.Context, computedFor time.Time) ([]models.ShadowPolygon, error) {
	var shadows []models.ShadowPolygon
	query := `
		SELECT building_id, ST_AsText(ST_Multi(geom))
		FROM public.building_shadows
		WHERE computed_for = $1
		ORDER BY building_id;
	`

	rows, err := r.db.Query(ctx, query, computedFor.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query building shadows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			shadow models.ShadowPolygon
			geom   string
		)
		if errScan := rows.Scan(&shadow.SourceID, &geom); errScan != nil {
			return nil, fmt.Errorf("failed to scan building shadow: %w", errScan)
		}
		if shadow.Geometry, err = wkt.UnmarshalMultiPolygon(geom); err != nil {
			return nil, fmt.Errorf("failed to parse shadow of building %d: %w", shadow.SourceID, err)
		}
		shadow.Kind = models.ShadowBuilding
		shadow.ComputedFor = computedFor
		shadow.Frame = models.FrameGeographic
		shadows = append(shadows, shadow)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return shadows, nil
}
