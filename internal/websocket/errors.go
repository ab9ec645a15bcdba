// internal/websocket/errors.go
package websocket

import (
	"errors"
	"fmt"
)

var ErrNoToken = errors.New("push channel: no session token")

// HandshakeError is returned when the backend refuses the upgrade.
type HandshakeError struct {
	StatusCode int
	Body       string
}

func (e *HandshakeError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("push channel rejected (status=%d)", e.StatusCode)
	}
	return fmt.Sprintf("push channel rejected (status=%d): %s", e.StatusCode, e.Body)
}
