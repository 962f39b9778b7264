package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/observability"
	"github.com/UnknownOlympus/shadeway/internal/sun"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// SweepResult holds the time-of-day coverage of every segment.
type SweepResult struct {
	RunID   string
	Samples []models.SweepSample
	Skipped []time.Time // Instants with the sun below the horizon.
}

// Sweep scores the network once per timestamp, separating tree shade from total shade,
// and stores the samples. Instants with the sun below the horizon are skipped.
func (s *ShadeService) Sweep(ctx context.Context, timestamps []time.Time) (_ *SweepResult, err error) {
	ctx, span := observability.StartSpan(ctx, "shadeway.sweep", attribute.Int("timestamps", len(timestamps)))
	defer func() { observability.EndSpan(span, err) }()

	w, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{RunID: uuid.NewString()}
	for _, ts := range timestamps {
		batch, errCast := s.cast(ctx, w, ts)
		if errors.Is(errCast, sun.ErrBelowHorizon) {
			s.log.InfoContext(ctx, "Skipping sweep instant, sun below the horizon", "computed_for", ts)
			result.Skipped = append(result.Skipped, ts)
			continue
		}
		if errCast != nil {
			return nil, errCast
		}

		samples, errSample := s.sample(ctx, w, batch, ts)
		if errSample != nil {
			return nil, errSample
		}
		result.Samples = append(result.Samples, samples...)
	}

	if len(result.Samples) == 0 {
		s.log.WarnContext(ctx, "Sweep produced no samples", "skipped", len(result.Skipped))
		return result, nil
	}

	if err = s.repo.SaveSweep(ctx, result.RunID, result.Samples); err != nil {
		return result, fmt.Errorf("failed to persist sweep %s: %w", result.RunID, err)
	}

	return result, nil
}

// sample scores the network twice, against tree shadows only and against all shadows.
func (s *ShadeService) sample(
	ctx context.Context,
	w *world,
	batch *shadowBatch,
	ts time.Time,
) ([]models.SweepSample, error) {
	_, byTrees, _, err := s.score(ctx, w.segments, batch.trees)
	if err != nil {
		return nil, err
	}
	_, total, _, err := s.score(ctx, w.segments, batch.all())
	if err != nil {
		return nil, err
	}

	treeCovered := make(map[int64]float64, len(byTrees))
	for _, seg := range byTrees {
		treeCovered[seg.ID] = seg.CoveredLength
	}

	samples := make([]models.SweepSample, 0, len(total))
	for _, seg := range total {
		samples = append(samples, models.SweepSample{
			SegmentID:         seg.ID,
			ComputedFor:       ts,
			CoveredLength:     seg.CoveredLength,
			TreeCoveredLength: treeCovered[seg.ID],
			Length:            seg.Length,
		})
	}

	return samples, nil
}
