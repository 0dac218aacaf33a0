package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	infralogger "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

// statusFor maps a domain error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": msg}. Unclassified errors are logged and
// answered with failure, never with their text.
func respondError(c *gin.Context, err error, failure string) {
	status := statusFor(err)
	msg := domain.Message(err)
	if status == http.StatusInternalServerError || msg == "" {
		if status == http.StatusInternalServerError {
			infralogger.FromContext(c.Request.Context()).Error(failure,
				infralogger.String("path", c.FullPath()),
				infralogger.Error(err),
			)
		}
		msg = failure
	}
	c.JSON(status, gin.H{"error": msg})
}

// parseScheduleID validates the :id parameter.
func parseScheduleID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule ID format"})
		return "", false
	}
	return id, true
}

func noCache(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}
