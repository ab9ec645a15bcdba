package api

import (
	"context"
	"fmt"

	"swiftel-client/internal/domain/request"
)

// ListRequests returns every request; approvers only.
func (c *Client) ListRequests(ctx context.Context) ([]request.Request, error) {
	var out []request.Request
	if err := c.get(ctx, "/requests", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMyRequests returns the caller's own requests; employees only.
func (c *Client) ListMyRequests(ctx context.Context) ([]request.Request, error) {
	var out []request.Request
	if err := c.get(ctx, "/requests/my-requests", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetRequest(ctx context.Context, id int64) (*request.Request, error) {
	var out request.Request
	if err := c.get(ctx, fmt.Sprintf("/requests/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRequest(ctx context.Context, req request.CreateRequest) (*request.Request, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out request.Request
	if err := c.post(ctx, "/requests", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Decide(ctx context.Context, id int64, req request.DecideRequest) error {
	return c.post(ctx, fmt.Sprintf("/requests/%d/decide", id), req, nil)
}

func (c *Client) GetStats(ctx context.Context) (*request.Stats, error) {
	var out request.Stats
	if err := c.get(ctx, "/requests/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
