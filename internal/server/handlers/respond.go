package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/domain/models"
	"github.com/rubberworks/queuegate/internal/repository/mongodb"
	"github.com/rubberworks/queuegate/internal/server/middleware"
	"github.com/rubberworks/queuegate/internal/service/auth"
	"github.com/rubberworks/queuegate/internal/service/bookings"
	"github.com/rubberworks/queuegate/pkg/clients/backend"
)

// statusFor maps service errors onto HTTP statuses. Upstream errors are handled separately.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bookings.ErrInvalidBooking),
		errors.Is(err, models.ErrInvalidSupplier),
		errors.Is(err, models.ErrInvalidMeasurement),
		errors.Is(err, models.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrLifecycleOrder),
		errors.Is(err, models.ErrAlreadyRecorded):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidSession),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrUpstreamUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, mongodb.ErrReportNotFound):
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// respondError writes err to the client. Upstream statuses and bodies pass through verbatim.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		logger.Info("upstream rejected request",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", apiErr.StatusCode),
			zap.String("message", apiErr.Message))
		if len(apiErr.Body) > 0 {
			contentType := apiErr.ContentType
			if contentType == "" {
				contentType = "application/json"
			}
			c.Data(apiErr.StatusCode, contentType, apiErr.Body)
			return
		}
		c.JSON(apiErr.StatusCode, gin.H{"error": apiErr.Message})
		return
	}

	status := statusFor(err)
	if status == http.StatusBadGateway {
		logger.Error("upstream call failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(status, gin.H{"error": "upstream unavailable"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// upstreamToken returns the upstream access token of the current session.
func upstreamToken(c *gin.Context) string {
	if session, ok := middleware.Session(c); ok {
		return session.AccessToken
	}
	return ""
}
