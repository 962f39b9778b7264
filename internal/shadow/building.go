package shadow

import (
	"context"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/models"
)

// BuildingSolver is an external building shadow solver. It receives the footprints to
// cast for and the instant, and returns shadow polygons tagged with the building ids.
type BuildingSolver interface {
	Solve(ctx context.Context, footprints []models.Building, ts time.Time) ([]models.ShadowPolygon, error)
}
