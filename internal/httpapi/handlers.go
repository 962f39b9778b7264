package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/UnknownOlympus/shadeway/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
)

type pointRequest struct {
	Lon float64 `json:"lon" binding:"gte=-180,lte=180"`
	Lat float64 `json:"lat" binding:"gte=-90,lte=90"`
}

type endpointRequest struct {
	Node    *int64        `json:"node"`
	Point   *pointRequest `json:"point"`
	Address string        `json:"address"`
}

type routeRequest struct {
	From  *endpointRequest `json:"from" binding:"required"`
	To    *endpointRequest `json:"to" binding:"required"`
	Alpha *float64         `json:"alpha"`
}

func (e *endpointRequest) endpoint() service.Endpoint {
	ep := service.Endpoint{Node: e.Node, Address: strings.TrimSpace(e.Address)}
	if e.Point != nil {
		ep.Point = &models.Coordinates{Longitude: e.Point.Lon, Latitude: e.Point.Lat}
	}
	return ep
}

// Route answers POST /v1/routes with the route as a GeoJSON feature collection.
func (s *Server) Route(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid route request: "+err.Error())
		return
	}

	alpha := s.opts.Alpha
	if req.Alpha != nil {
		alpha = *req.Alpha
	}

	res, err := s.shade.Route(c.Request.Context(), req.From.endpoint(), req.To.endpoint(), alpha)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	writeJSON(c, http.StatusOK, routeCollection(res))
}

// Coverage answers GET /v1/coverage with the scored segments of the latest snapshot.
// An optional bbox=minLon,minLat,maxLon,maxLat limits the segments returned.
func (s *Server) Coverage(c *gin.Context) {
	var area *orb.Bound
	if raw := c.Query("bbox"); raw != "" {
		bound, err := parseBBox(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		area = &bound
	}

	snap, err := s.shade.Snapshot()
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	writeJSON(c, http.StatusOK, coverageCollection(snap, area))
}

// Planting answers GET /v1/planting with the candidates selected within budget trees.
func (s *Server) Planting(c *gin.Context) {
	budget := s.opts.Budget
	if raw := c.Query("budget"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, http.StatusBadRequest, "budget must be a non-negative integer")
			return
		}
		budget = n
	}

	snap, err := s.shade.Snapshot()
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	candidates := s.shade.PlanSnapshot(c.Request.Context(), snap, s.opts.Planting, budget)

	writeJSON(c, http.StatusOK, plantingCollection(snap.Projection, candidates, budget))
}

// Health answers GET /healthz. The API is healthy once a snapshot is published and
// the database answers.
func (s *Server) Health(c *gin.Context) {
	ctx := c.Request.Context()
	s.log.DebugContext(ctx, "Performing health checks...")

	if _, err := s.shade.Snapshot(); err != nil {
		writeError(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DB ping failed")
			return
		}
	}

	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func parseBBox(raw string) (orb.Bound, error) {
	parts := strings.Split(raw, ",")
	const bboxParts = 4
	if len(parts) != bboxParts {
		return orb.Bound{}, fmt.Errorf("bbox needs %d comma separated values, got %d", bboxParts, len(parts))
	}

	vals := make([]float64, bboxParts)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("failed to parse bbox value %q: %w", part, err)
		}
		vals[i] = v
	}

	bound := orb.Bound{Min: orb.Point{vals[0], vals[1]}, Max: orb.Point{vals[2], vals[3]}}
	if bound.IsEmpty() {
		return orb.Bound{}, fmt.Errorf("bbox minimum exceeds maximum: %s", raw)
	}
	return bound, nil
}
