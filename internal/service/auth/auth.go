// internal/service/auth/auth.go
package auth

import (
	"context"
	"fmt"

	"swiftel-client/internal/domain/auth"

	"go.uber.org/zap"
)

// Backend is the part of the REST client the auth flow needs.
type Backend interface {
	Login(ctx context.Context, req auth.LoginRequest) (string, error)
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.RegisterResponse, error)
}

// Sessions is the write side of the session manager.
type Sessions interface {
	Login(ctx context.Context, token string, rememberMe bool) (auth.Identity, error)
	Logout(ctx context.Context) error
}

type AuthService struct {
	backend  Backend
	sessions Sessions
	logger   *zap.Logger
}

func NewAuthService(backend Backend, sessions Sessions, logger *zap.Logger) *AuthService {
	return &AuthService{
		backend:  backend,
		sessions: sessions,
		logger:   logger,
	}
}

// Login authenticates against the backend and installs the issued token.
func (s *AuthService) Login(ctx context.Context, req auth.LoginRequest) (auth.Identity, error) {
	token, err := s.backend.Login(ctx, req)
	if err != nil {
		return auth.Identity{}, err
	}

	id, err := s.sessions.Login(ctx, token, req.RememberMe)
	if err != nil {
		s.logger.Error("backend issued a token the client cannot read", zap.Error(err))
		return auth.Identity{}, fmt.Errorf("install session: %w", err)
	}
	return id, nil
}

func (s *AuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.RegisterResponse, error) {
	return s.backend.Register(ctx, req)
}

func (s *AuthService) Logout(ctx context.Context) error {
	return s.sessions.Logout(ctx)
}
