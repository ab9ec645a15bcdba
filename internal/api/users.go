package api

import (
	"context"
	"fmt"

	"swiftel-client/internal/domain/auth"
)

func (c *Client) ListUsers(ctx context.Context) ([]auth.User, error) {
	var out []auth.User
	if err := c.get(ctx, "/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetMe(ctx context.Context) (*auth.User, error) {
	var out auth.User
	if err := c.get(ctx, "/users/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMe(ctx context.Context, req auth.UpdateProfileRequest) (*auth.User, error) {
	var out auth.User
	if err := c.patch(ctx, "/users/me", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, req auth.UpdateUserRequest) (*auth.User, error) {
	var out auth.User
	if err := c.patch(ctx, fmt.Sprintf("/users/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.delete(ctx, fmt.Sprintf("/users/%d", id))
}
