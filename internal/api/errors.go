package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diabetes-risk-server/internal/domain"
	"github.com/diabetes-risk-server/internal/middleware"
	"github.com/diabetes-risk-server/internal/service"
)

// abortWithError writes the uniform error body for err.
func (s *Server) abortWithError(c *gin.Context, err error) {
	status, code, message := classifyError(err)
	_ = c.Error(err)

	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("request_id", middleware.GetRequestID(c)).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, middleware.GetRequestID(c)))
}

// classifyError maps an error to its HTTP status, code and client message.
// Internal causes are not echoed to clients.
func classifyError(err error) (int, string, string) {
	var malformed *domain.MalformedInputError
	switch {
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity, domain.ErrCodeMalformedInput, malformed.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrCodeNotFound, "assessment not found"
	case errors.Is(err, service.ErrHistoryDisabled), errors.Is(err, errFeedbackDisabled):
		return http.StatusServiceUnavailable, domain.ErrCodeUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, domain.ErrCodeInternal, "internal server error"
	}
}
