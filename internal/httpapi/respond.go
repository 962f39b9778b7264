package httpapi

import (
	"errors"
	"net/http"

	"github.com/UnknownOlympus/shadeway/internal/geocoding"
	"github.com/UnknownOlympus/shadeway/internal/routing"
	"github.com/UnknownOlympus/shadeway/internal/service"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps service errors to statuses. Unknown errors are logged and
// reported without detail.
func (s *Server) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoSnapshot):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrInvalidEndpoint),
		errors.Is(err, routing.ErrUnknownNode),
		errors.Is(err, routing.ErrInvalidAlpha),
		errors.Is(err, geocoding.ErrEmptyResponse),
		errors.Is(err, geocoding.ErrNominatimEmptyResponse):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, routing.ErrNoPathFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrGeocoderUnavailable):
		writeError(c, http.StatusNotImplemented, err.Error())
	default:
		s.log.ErrorContext(c.Request.Context(), "Request failed", "path", c.FullPath(), "error", err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
