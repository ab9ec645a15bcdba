// internal/pkg/session/types.go
package session

import "swiftel-client/internal/domain/auth"

// Readiness tells whether the boot attempt has finished.
type Readiness int

const (
	Loading Readiness = iota
	Ready
)

func (r Readiness) String() string {
	if r == Ready {
		return "ready"
	}
	return "loading"
}

// State is the process-wide view of the current session. Values handed out
// by the Manager are copies; changing them has no effect on the session.
type State struct {
	Identity  *auth.Identity `json:"identity"`
	Readiness Readiness      `json:"-"`
}

// Authenticated is true when an identity is present.
func (s State) Authenticated() bool {
	return s.Identity != nil
}

// IsReady is true once boot has completed.
func (s State) IsReady() bool {
	return s.Readiness == Ready
}

func (s State) clone() State {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}
