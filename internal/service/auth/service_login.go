package auth

import (
	"context"
	"fmt"
)

// ServiceLogin obtains upstream tokens for background jobs that act without a user.
type ServiceLogin struct {
	svc      *Service
	email    string
	password string
}

// NewServiceLogin binds service credentials to the auth service.
func NewServiceLogin(svc *Service, email, password string) *ServiceLogin {
	return &ServiceLogin{svc: svc, email: email, password: password}
}

// Token logs in with the service credentials and returns the upstream access token.
// Without credentials it returns an empty token.
func (l *ServiceLogin) Token(ctx context.Context) (string, error) {
	if l == nil || l.email == "" {
		return "", nil
	}
	_, token, err := l.svc.Authorize(ctx, l.email, l.password)
	if err != nil {
		return "", fmt.Errorf("service login %s: %w", l.email, err)
	}
	return token, nil
}
