package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/domain/models"
	"github.com/rubberworks/queuegate/pkg/clients/backend"
)

var (
	// ErrInvalidCredentials is returned by Login whenever the upstream refused or
	// produced anything other than a usable token.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidClaims indicates the upstream token payload carries no user identity.
	ErrInvalidClaims = errors.New("upstream token has no usable claims")
	// ErrInvalidSession indicates a gateway session token that failed verification.
	ErrInvalidSession = errors.New("invalid session token")
	// ErrUpstreamUnauthorized indicates the upstream rejected the stored access token.
	ErrUpstreamUnauthorized = errors.New("upstream session expired")
)

// Authenticator is the surface the HTTP layer uses.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.Session, string, error)
	Resolve(ctx context.Context, token string) (*models.Session, error)
	Logout(ctx context.Context, sessionID string) error
	Profile(ctx context.Context, session *models.Session) (models.SessionUser, error)
}

// Service authenticates dashboard users against the upstream backend and issues
// gateway session tokens.
type Service struct {
	client backend.Client
	store  Store
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires the auth service.
func NewService(client backend.Client, store Store, secret string, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: client,
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Authorize checks credentials upstream and maps the returned token into a user.
// On any failure the user is nil and the upstream token empty.
func (s *Service) Authorize(ctx context.Context, email, password string) (*models.SessionUser, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}

	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	user, err := userFromToken(resp.AccessToken, resp.Payload.Object("user", "profile"))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if user.Email == "" {
		user.Email = email
	}

	return user, resp.AccessToken, nil
}

// userFromToken decodes the upstream JWT payload without verifying its signature;
// the upstream that issued it is trusted.
func userFromToken(accessToken string, fallback models.Record) (*models.SessionUser, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("decode access token: %w", err)
	}

	r := models.Record(claims)
	if fallback == nil {
		fallback = models.Record{}
	}

	user := models.SessionUser{
		ID:         firstNonEmpty(r.String("sub", "id", "user_id", "userId", "uid"), fallback.String("id", "_id", "user_id")),
		Email:      firstNonEmpty(r.String("email"), fallback.String("email")),
		Name:       firstNonEmpty(r.String("name", "username", "full_name"), fallback.String("name", "username", "full_name")),
		Role:       firstNonEmpty(r.String("role", "user_role", "userRole"), fallback.String("role", "user_role")),
		Department: firstNonEmpty(r.String("department"), fallback.String("department", "department_name")),
		HODID:      firstNonEmpty(r.String("hod_id", "hodId"), fallback.String("hod_id", "hodId")),
	}
	if user.Role == "" {
		if roles := r.Strings("roles"); len(roles) > 0 {
			user.Role = roles[0]
		}
	}
	if user.ID == "" {
		return nil, ErrInvalidClaims
	}
	user.Role = strings.ToLower(user.Role)
	user.Permissions = models.PermissionsForRole(user.Role)

	return &user, nil
}

// Login authorizes the user, stores a session and returns it with its signed token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Session, string, error) {
	user, accessToken, err := s.Authorize(ctx, email, password)
	if err != nil {
		s.logger.Info("login rejected", zap.String("email", email), zap.Error(err))
		return nil, "", ErrInvalidCredentials
	}

	now := s.now()
	session := models.Session{
		ID:          uuid.NewString(),
		User:        *user,
		AccessToken: accessToken,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, "", fmt.Errorf("store session: %w", err)
	}

	signed, err := s.sign(session, now)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return &session, signed, nil
}

func (s *Service) sign(session models.Session, now time.Time) (string, error) {
	claims := sessionClaims{
		SessionID: session.ID,
		Email:     session.User.Email,
		Role:      session.User.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.User.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Resolve verifies a gateway session token and loads its session.
func (s *Service) Resolve(ctx context.Context, token string) (*models.Session, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing sid", ErrInvalidSession)
	}

	session, err := s.store.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Logout removes the session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

// Profile merges the upstream "me" profile into the session user. Upstream failures other
// than 401 fall back to the token-derived user.
func (s *Service) Profile(ctx context.Context, session *models.Session) (models.SessionUser, error) {
	profile, err := s.client.Me(ctx, session.AccessToken)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return models.SessionUser{}, ErrUpstreamUnauthorized
		}
		s.logger.Warn("profile fetch failed, using token claims", zap.String("user_id", session.User.ID), zap.Error(err))
		return session.User, nil
	}
	return session.User.MergeProfile(profile), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
