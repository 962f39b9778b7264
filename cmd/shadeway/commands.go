package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runWithApp wires the application for a one-shot subcommand and closes it afterwards.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	return fn(ctx, a)
}

func newScoreCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Cast shadows for one instant, score every segment and store the run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, err := parseInstant(at, time.Now())
			if err != nil {
				return err
			}
			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				snap, err := a.service.Refresh(ctx, ts)
				if snap == nil {
					return err
				}
				if printErr := printJSON(cmd.OutOrStdout(), scoreSummary(snap)); printErr != nil {
					return printErr
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "instant to cast shadows for, RFC 3339 (default now)")

	return cmd
}

func newRouteCmd() *cobra.Command {
	var (
		at    string
		alpha float64
		from  = endpointFlags{prefix: "from"}
		to    = endpointFlags{prefix: "to"}
	)

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Find the shade-weighted route between two endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, err := parseInstant(at, time.Now())
			if err != nil {
				return err
			}
			start, err := from.endpoint(cmd.Flags())
			if err != nil {
				return fmt.Errorf("invalid --from endpoint: %w", err)
			}
			end, err := to.endpoint(cmd.Flags())
			if err != nil {
				return fmt.Errorf("invalid --to endpoint: %w", err)
			}

			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				if !cmd.Flags().Changed("alpha") {
					alpha = a.cfg.Routing.Alpha
				}
				if _, err := a.service.Refresh(ctx, ts); err != nil && !canServe(a.service) {
					return err
				}

				res, err := a.service.Route(ctx, start, end, alpha)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), routeSummary(res))
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "instant to cast shadows for, RFC 3339 (default now)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "shade preference, 0 ignores shade (default from configuration)")
	from.register(cmd.Flags())
	to.register(cmd.Flags())

	return cmd
}

func newSweepCmd() *cobra.Command {
	var (
		start, end string
		step       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Score the network at regular instants and store tree and total shade per segment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			first, err := parseInstant(start, time.Time{})
			if err != nil {
				return err
			}
			last, err := parseInstant(end, time.Time{})
			if err != nil {
				return err
			}
			timestamps, err := sweepTimes(first, last, step)
			if err != nil {
				return err
			}

			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.service.Sweep(ctx, timestamps)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"run_id":  res.RunID,
					"samples": len(res.Samples),
					"skipped": res.Skipped,
				})
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first instant, RFC 3339")
	cmd.Flags().StringVar(&end, "end", "", "last instant, RFC 3339")
	cmd.Flags().DurationVar(&step, "step", time.Hour, "interval between instants")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func newPlanCmd() *cobra.Command {
	var (
		at     string
		budget int
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Rank segments where planting trees adds the most shade",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, err := parseInstant(at, time.Now())
			if err != nil {
				return err
			}

			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				if !cmd.Flags().Changed("budget") {
					budget = a.cfg.Planting.Budget
				}
				if _, err := a.service.Refresh(ctx, ts); err != nil && !canServe(a.service) {
					return err
				}

				candidates, err := a.service.Plan(ctx, a.plantingParams(), budget)
				if err != nil {
					return err
				}

				rows := make([]map[string]any, 0, len(candidates))
				for _, cand := range candidates {
					rows = append(rows, map[string]any{
						"segment_id":             cand.Segment.ID,
						"score":                  cand.Score,
						"cost":                   cand.Cost,
						"shade_percent":          cand.ShadePercent,
						"possible_shade_percent": cand.PossibleShadePercent,
					})
				}
				return printJSON(cmd.OutOrStdout(), rows)
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "instant to cast shadows for, RFC 3339 (default now)")
	cmd.Flags().IntVar(&budget, "budget", 0, "number of trees available (default from configuration)")

	return cmd
}

// canServe reports whether a snapshot was published, which a failed save still allows.
func canServe(svc *service.ShadeService) bool {
	_, err := svc.Snapshot()
	return err == nil
}

// endpointFlags collects one route endpoint from the command line.
type endpointFlags struct {
	prefix  string
	node    int64
	point   string
	address string
}

func (e *endpointFlags) register(flags *pflag.FlagSet) {
	flags.Int64Var(&e.node, e.prefix+"-node", 0, "network node id")
	flags.StringVar(&e.point, e.prefix+"-point", "", "geographic point as lon,lat")
	flags.StringVar(&e.address, e.prefix+"-address", "", "address resolved by the geocoder")
}

func (e *endpointFlags) endpoint(flags *pflag.FlagSet) (service.Endpoint, error) {
	switch {
	case flags.Changed(e.prefix + "-node"):
		node := e.node
		return service.Endpoint{Node: &node}, nil
	case e.point != "":
		coords, err := parsePoint(e.point)
		if err != nil {
			return service.Endpoint{}, err
		}
		return service.Endpoint{Point: &coords}, nil
	case strings.TrimSpace(e.address) != "":
		return service.Endpoint{Address: strings.TrimSpace(e.address)}, nil
	default:
		return service.Endpoint{}, service.ErrInvalidEndpoint
	}
}

// parseInstant parses an RFC 3339 instant, returning fallback for an empty string.
func parseInstant(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse instant %q: %w", raw, err)
	}
	return ts, nil
}

// parsePoint parses "lon,lat" into geographic coordinates.
func parsePoint(raw string) (models.Coordinates, error) {
	lonRaw, latRaw, ok := strings.Cut(raw, ",")
	if !ok {
		return models.Coordinates{}, fmt.Errorf("point must be lon,lat: %q", raw)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonRaw), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("failed to parse longitude %q: %w", lonRaw, err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("failed to parse latitude %q: %w", latRaw, err)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return models.Coordinates{}, fmt.Errorf("point out of range: %q", raw)
	}
	return models.Coordinates{Longitude: lon, Latitude: lat}, nil
}

// sweepTimes lists the instants from start to end inclusive, step apart.
func sweepTimes(start, end time.Time, step time.Duration) ([]time.Time, error) {
	if step <= 0 {
		return nil, errors.New("sweep step must be positive")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("sweep end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	var out []time.Time
	for ts := start; !ts.After(end); ts = ts.Add(step) {
		out = append(out, ts)
	}
	return out, nil
}

func scoreSummary(snap *service.Snapshot) map[string]any {
	var length, covered float64
	for _, seg := range snap.Segments {
		length += seg.Length
		covered += seg.CoveredLength
	}
	fraction := 0.0
	if length > 0 {
		fraction = covered / length
	}

	return map[string]any{
		"run_id":           snap.Run.ID,
		"computed_for":     snap.Run.ComputedFor,
		"segments":         snap.Run.Segments,
		"shadows":          snap.Run.Shadows,
		"skipped":          snap.Run.Skipped,
		"length":           length,
		"covered_length":   covered,
		"covered_fraction": fraction,
	}
}

func routeSummary(res *service.RouteResult) map[string]any {
	route := res.Route
	return map[string]any{
		"computed_for":     res.ComputedFor,
		"alpha":            route.Alpha,
		"nodes":            route.Nodes(),
		"segments":         route.SegmentIDs(),
		"length":           route.Length(),
		"covered_length":   route.CoveredLength(),
		"covered_fraction": route.CoveredFraction(),
		"cost":             route.Cost(route.Alpha),
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
