// internal/service/notification/service.go
package notification

import (
	"context"
	"fmt"

	"swiftel-client/internal/domain/notification"
	"swiftel-client/internal/pkg/cache"
	ws "swiftel-client/internal/websocket"
)

type Backend interface {
	ListNotifications(ctx context.Context) ([]notification.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) (*notification.Notification, error)
	MarkAllNotificationsRead(ctx context.Context) error
}

// NotificationService serves the notification views from the query cache
type NotificationService struct {
	backend Backend
	cache   *cache.Cache
	hub     *ws.Hub
}

func NewNotificationService(backend Backend, c *cache.Cache, hub *ws.Hub) *NotificationService {
	return &NotificationService{
		backend: backend,
		cache:   c,
		hub:     hub,
	}
}

// List returns the user's notifications with the unread counter.
func (s *NotificationService) List(ctx context.Context) (*notification.ListResponse, error) {
	items, err := cache.Fetch(ctx, s.cache, ws.NotificationsQuery, s.backend.ListNotifications)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return &notification.ListResponse{
		Notifications: items,
		Summary:       notification.Summarize(items),
	}, nil
}

// MarkAsRead marks one notification read and refreshes the list.
func (s *NotificationService) MarkAsRead(ctx context.Context, id int64) (*notification.Notification, error) {
	n, err := s.backend.MarkNotificationRead(ctx, id)
	if err != nil {
		return nil, err
	}
	s.changed()
	return n, nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context) error {
	if err := s.backend.MarkAllNotificationsRead(ctx); err != nil {
		return err
	}
	s.changed()
	return nil
}

func (s *NotificationService) changed() {
	s.cache.Invalidate(ws.NotificationsQuery)
	if s.hub != nil {
		s.hub.NotificationsChanged()
	}
}
