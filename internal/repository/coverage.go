package repository

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/jackc/pgx/v5"
)

// SaveCoverage stores a coverage run and the per-segment results in one transaction.
func (r *Repository) SaveCoverage(ctx context.Context, run models.CoverageRun, segments []models.Segment) error {
	query := `
		INSERT INTO coverage_runs (run_id, computed_for, azimuth, altitude, shadows, segments, skipped)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.Exec(ctx, query,
		run.ID, run.ComputedFor.UTC(), run.Azimuth, run.Altitude, run.Shadows, run.Segments, run.Skipped)
	if err != nil {
		r.rollback(ctx, tx)
		return fmt.Errorf("failed to insert coverage run: %w", err)
	}

	rows := make([][]any, 0, len(segments))
	for _, seg := range segments {
		rows = append(rows, []any{run.ID, seg.ID, seg.Length, seg.CoveredLength, seg.CoveredFraction})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"segment_coverage"},
		[]string{"run_id", "segment_id", "length", "covered_length", "covered_fraction"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		r.rollback(ctx, tx)
		return fmt.Errorf("failed to copy segment coverage: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit coverage run: %w", err)
	}

	r.log.DebugContext(ctx, "Coverage run saved", "run", run.ID, "segments", len(segments))

	return nil
}

// SaveSweep stores the samples of a time-of-day sweep.
func (r *Repository) SaveSweep(ctx context.Context, runID string, samples []models.SweepSample) error {
	rows := make([][]any, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []any{runID, s.SegmentID, s.ComputedFor.UTC(), s.Length, s.CoveredLength, s.TreeCoveredLength})
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM sweep_samples WHERE run_id = $1;`, runID)
	if err != nil {
		r.rollback(ctx, tx)
		return fmt.Errorf("failed to clear sweep samples: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"sweep_samples"},
		[]string{"run_id", "segment_id", "computed_for", "length", "covered_length", "tree_covered_length"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		r.rollback(ctx, tx)
		return fmt.Errorf("failed to copy sweep samples: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sweep samples: %w", err)
	}

	return nil
}

func (r *Repository) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil {
		r.log.ErrorContext(ctx, "failed to rollback transaction", "error", err)
	}
}
