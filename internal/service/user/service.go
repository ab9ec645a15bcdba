// internal/service/user/service.go
package user

import (
	"context"

	"swiftel-client/internal/domain/auth"
	"swiftel-client/internal/pkg/cache"
)

const (
	UsersQuery   = "users"
	AccountQuery = "account"
)

type Backend interface {
	ListUsers(ctx context.Context) ([]auth.User, error)
	GetMe(ctx context.Context) (*auth.User, error)
	UpdateMe(ctx context.Context, req auth.UpdateProfileRequest) (*auth.User, error)
	UpdateUser(ctx context.Context, id int64, req auth.UpdateUserRequest) (*auth.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type UserService struct {
	backend Backend
	cache   *cache.Cache
}

func NewUserService(backend Backend, c *cache.Cache) *UserService {
	return &UserService{backend: backend, cache: c}
}

func (s *UserService) List(ctx context.Context) ([]auth.User, error) {
	return cache.Fetch(ctx, s.cache, UsersQuery, s.backend.ListUsers)
}

func (s *UserService) Me(ctx context.Context) (*auth.User, error) {
	return cache.Fetch(ctx, s.cache, AccountQuery, s.backend.GetMe)
}

func (s *UserService) UpdateMe(ctx context.Context, req auth.UpdateProfileRequest) (*auth.User, error) {
	u, err := s.backend.UpdateMe(ctx, req)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(AccountQuery)
	s.cache.Invalidate(UsersQuery)
	return u, nil
}

func (s *UserService) Update(ctx context.Context, id int64, req auth.UpdateUserRequest) (*auth.User, error) {
	u, err := s.backend.UpdateUser(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(UsersQuery)
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.backend.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(UsersQuery)
	return nil
}
