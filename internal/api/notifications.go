package api

import (
	"context"
	"fmt"

	"swiftel-client/internal/domain/notification"
)

func (c *Client) ListNotifications(ctx context.Context) ([]notification.Notification, error) {
	var out []notification.Notification
	if err := c.get(ctx, "/notifications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id int64) (*notification.Notification, error) {
	var out notification.Notification
	if err := c.put(ctx, fmt.Sprintf("/notifications/%d/read", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.put(ctx, "/notifications/mark-all-read", nil, nil)
}
