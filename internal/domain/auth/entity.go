// internal/domain/auth/entity.go
package auth

import "strings"

// Role is the closed set of roles a Swiftel account can hold.
// The zero value means "no role" and never grants access to a gated view.
type Role int

const (
	RoleNone Role = iota
	RoleEmployee
	RoleBoardMember
	RoleAdmin
)

// ParseRole maps the wire form of a role. Unknown or empty strings yield RoleNone.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "employee":
		return RoleEmployee
	case "board_member":
		return RoleBoardMember
	case "admin":
		return RoleAdmin
	default:
		return RoleNone
	}
}

func (r Role) String() string {
	switch r {
	case RoleEmployee:
		return "employee"
	case RoleBoardMember:
		return "board_member"
	case RoleAdmin:
		return "admin"
	default:
		return ""
	}
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleBoardMember || r == RoleAdmin
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}

// RoleSet is a set of roles declared by a protected view.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles, ignoring RoleNone.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		if r.Valid() {
			set[r] = struct{}{}
		}
	}
	return set
}

// Contains reports whether r is a member. RoleNone is never a member.
func (s RoleSet) Contains(r Role) bool {
	if !r.Valid() {
		return false
	}
	_, ok := s[r]
	return ok
}

// Strings returns the members in a stable order.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, r := range []Role{RoleEmployee, RoleBoardMember, RoleAdmin} {
		if _, ok := s[r]; ok {
			out = append(out, r.String())
		}
	}
	return out
}

// Identity is the decoded, unverified view of a session token.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// HasRole checks the identity against a single role
func (i Identity) HasRole(role Role) bool {
	return i.Role.Valid() && i.Role == role
}

// IsApprover is true for board members and admins.
func (i Identity) IsApprover() bool {
	return i.Role == RoleBoardMember || i.Role == RoleAdmin
}
