package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/server/middleware"
	"github.com/rubberworks/queuegate/internal/service/auth"
)

// AuthHandler serves login, logout and the current session.
type AuthHandler struct {
	svc          auth.Authenticator
	secureCookie bool
	logger       *zap.Logger
}

// NewAuthHandler constructs the auth handler. Cookies are marked secure when publicURL is https.
func NewAuthHandler(svc auth.Authenticator, publicURL string, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		svc:          svc,
		secureCookie: strings.HasPrefix(strings.ToLower(publicURL), "https://"),
		logger:       logger,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a gateway session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	session, token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to create session"})
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", h.secureCookie, true)

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"user":       session.User,
		"expires_at": session.ExpiresAt,
	})
}

// Logout deletes the session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	session, ok := middleware.Session(c)
	if ok {
		if err := h.svc.Logout(c.Request.Context(), session.ID); err != nil {
			h.logger.Warn("logout failed", zap.String("session_id", session.ID), zap.Error(err))
		}
	}
	h.clearCookie(c)
	c.Status(http.StatusNoContent)
}

// Session returns the current user merged with the upstream profile.
func (h *AuthHandler) Session(c *gin.Context) {
	session, ok := middleware.Session(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	user, err := h.svc.Profile(c.Request.Context(), session)
	if err != nil {
		if errors.Is(err, auth.ErrUpstreamUnauthorized) {
			_ = h.svc.Logout(c.Request.Context(), session.ID)
			h.clearCookie(c)
		}
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"expires_at": session.ExpiresAt,
	})
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie, true)
}
