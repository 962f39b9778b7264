package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database is the subset of a pgx pool the repository uses.
type Database interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

type Repository struct {
	db  Database
	log *slog.Logger
}

type Interface interface {
	FetchSegments(ctx context.Context) ([]models.Segment, error)
	FetchTrees(ctx context.Context) ([]models.Tree, error)
	FetchBuildings(ctx context.Context) ([]models.Building, error)
	FetchBuildingShadows(ctx context.Context, computedFor time.Time) ([]models.ShadowPolygon, error)
	SaveCoverage(ctx context.Context, run models.CoverageRun, segments []models.Segment) error
	SaveSweep(ctx context.Context, runID string, samples []models.SweepSample) error
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// NewDatabase opens a pgx connection pool and checks that the server answers.
func NewDatabase(ctx context.Context, host, port, user, password, name string) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
