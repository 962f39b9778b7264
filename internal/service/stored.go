package service

import (
	"context"
	"fmt"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/repository"
)

// StoredShadows serves building shadows an external solver wrote to the database ahead of time.
type StoredShadows struct {
	repo repository.Interface
}

// NewStoredShadows creates a building shadow source backed by the repository.
func NewStoredShadows(repo repository.Interface) *StoredShadows {
	return &StoredShadows{repo: repo}
}

// Solve returns the stored shadows for ts that belong to one of footprints.
func (ss *StoredShadows) Solve(ctx context.Context, footprints []models.Building, ts time.Time) ([]models.ShadowPolygon, error) {
	stored, err := ss.repo.FetchBuildingShadows(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored building shadows: %w", err)
	}

	known := make(map[int64]struct{}, len(footprints))
	for _, b := range footprints {
		known[b.ID] = struct{}{}
	}

	shadows := make([]models.ShadowPolygon, 0, len(stored))
	for _, sh := range stored {
		if _, ok := known[sh.SourceID]; ok {
			shadows = append(shadows, sh)
		}
	}

	return shadows, nil
}
