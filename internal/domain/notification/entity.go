// internal/domain/notification/entity.go
package notification

import "time"

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary mirrors the bell counter of the app shell
type Summary struct {
	TotalUnread int `json:"total_unread"`
	Total       int `json:"total"`
}

// ListResponse is what the notifications view renders
type ListResponse struct {
	Notifications []Notification `json:"notifications"`
	Summary       Summary        `json:"summary"`
}

// Summarize counts unread notifications.
func Summarize(items []Notification) Summary {
	s := Summary{Total: len(items)}
	for _, n := range items {
		if !n.IsRead {
			s.TotalUnread++
		}
	}
	return s
}
