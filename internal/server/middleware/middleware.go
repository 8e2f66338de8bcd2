package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/domain/models"
)

const (
	// SessionCookie carries the gateway session token for browser clients.
	SessionCookie = "session"

	sessionKey   = "session"
	requestIDKey = "request_id"
	userIDKey    = "user_id"
)

// SessionResolver verifies a gateway session token.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
}

// Logger logs each request once it completes.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if userID := c.GetString(userIDKey); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request rejected", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

// RequestID propagates X-Request-ID, generating one when absent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// CORS allows the dashboard origin to call the API with credentials. An empty origin
// disables the headers.
func CORS(origin string) gin.HandlerFunc {
	origin = strings.TrimSuffix(origin, "/")
	return func(c *gin.Context) {
		if origin != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequireSession resolves the session from the bearer token or the session cookie.
func RequireSession(resolver SessionResolver, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		session, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			logger.Debug("session rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		c.Set(sessionKey, session)
		c.Set(userIDKey, session.User.ID)
		c.Next()
	}
}

// RequirePermission rejects users whose role lacks perm.
func RequirePermission(perm models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := Session(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !session.User.Permissions.Allows(perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied: " + string(perm)})
			return
		}
		c.Next()
	}
}

// SessionToken extracts the gateway token, preferring the Authorization header.
func SessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// Session returns the session attached by RequireSession.
func Session(c *gin.Context) (*models.Session, bool) {
	value, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	session, ok := value.(*models.Session)
	return session, ok && session != nil
}
