// internal/websocket/signal.go
package websocket

import "go.uber.org/zap"

// SessionChecker tells whether a session is active.
type SessionChecker interface {
	Authenticated() bool
}

// QueryInvalidator drops cached query results.
type QueryInvalidator interface {
	Invalidate(key string)
}

// NotificationsQuery is the cache key of the notification list.
const NotificationsQuery = "notifications"

// RefetchOnSignal builds the push channel consumer. Without a session it
// does nothing; otherwise the notification query goes stale and the UI
// tabs are told to refetch.
func RefetchOnSignal(sessions SessionChecker, cache QueryInvalidator, hub *Hub, logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func() {
		if !sessions.Authenticated() {
			logger.Debug("push signal ignored: no session")
			return
		}
		cache.Invalidate(NotificationsQuery)
		if hub != nil {
			hub.NotificationsChanged()
		}
	}
}
