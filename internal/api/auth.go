package api

import (
	"context"
	"errors"

	"swiftel-client/internal/domain/auth"
)

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, req auth.LoginRequest) (string, error) {
	var resp auth.LoginResponse
	if err := c.post(ctx, "/auth/login", req, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("login: backend returned no token")
	}
	return resp.Token, nil
}

func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) (*auth.RegisterResponse, error) {
	var resp auth.RegisterResponse
	if err := c.post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
