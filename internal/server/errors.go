package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"botfleet/internal/api"
	"botfleet/pkg/logging"
)

// statusFor maps an error kind to the HTTP status code returned to clients.
func statusFor(kind api.ErrorKind) int {
	switch kind {
	case api.KindValidation:
		return http.StatusBadRequest
	case api.KindOwnership:
		return http.StatusForbidden
	case api.KindNotFound:
		return http.StatusNotFound
	case api.KindConflict:
		return http.StatusConflict
	case api.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with the structured error body for err.
func (s *Server) writeError(c *gin.Context, err error) {
	resp := api.NewErrorResponse(err)
	status := statusFor(resp.Kind)

	s.metrics.errors.WithLabelValues(string(resp.Kind)).Inc()
	if status >= http.StatusInternalServerError {
		logging.Error(subsystem, err, "%s %s failed (request %s)", c.Request.Method, c.Request.URL.Path, requestID(c))
	}

	c.AbortWithStatusJSON(status, resp)
}
