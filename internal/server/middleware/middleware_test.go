package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rubberworks/queuegate/internal/domain/models"
)

type stubResolver map[string]*models.Session

func (s stubResolver) Resolve(_ context.Context, token string) (*models.Session, error) {
	if session, ok := s[token]; ok {
		return session, nil
	}
	return nil, errors.New("unknown token")
}

func newEngine(resolver SessionResolver, perm models.Permission) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), CORS("https://dash.example.com"))
	r.GET("/protected", RequireSession(resolver, nil), RequirePermission(perm), func(c *gin.Context) {
		session, _ := Session(c)
		c.String(http.StatusOK, session.User.ID)
	})
	return r
}

func sessionFor(role string) *models.Session {
	return &models.Session{ID: "sid", User: models.SessionUser{ID: "u-" + role, Role: role, Permissions: models.PermissionsForRole(role)}}
}

func TestRequireSessionAcceptsBearerAndCookie(t *testing.T) {
	r := newEngine(stubResolver{"good": sessionFor("admin")}, models.PermRead)

	bearer := httptest.NewRequest(http.MethodGet, "/protected", nil)
	bearer.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, bearer)
	if rec.Code != http.StatusOK || rec.Body.String() != "u-admin" {
		t.Fatalf("bearer: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id")
	}

	cookie := httptest.NewRequest(http.MethodGet, "/protected", nil)
	cookie.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie: %d", rec.Code)
	}
}

func TestRequireSessionRejectsMissingOrInvalidToken(t *testing.T) {
	r := newEngine(stubResolver{}, models.PermRead)

	for _, header := range []string{"", "Bearer bad"} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestRequirePermissionForbidsUnknownRoleWrites(t *testing.T) {
	r := newEngine(stubResolver{"viewer": sessionFor("guest")}, models.PermDelete)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer viewer")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newEngine(stubResolver{}, models.PermRead)

	req := httptest.NewRequest(http.MethodOptions, "/protected", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://dash.example.com" {
		t.Errorf("unexpected origin header %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
