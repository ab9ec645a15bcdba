// Package router decides, for every navigation, whether a protected view
// renders, waits for the session to load, or redirects.
//
// The gate only shapes navigation. It reads an unverified token payload,
// so the backend must enforce every role itself.
package router

import (
	"swiftel-client/internal/domain/auth"
	"swiftel-client/internal/pkg/session"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

type Outcome int

const (
	Render Outcome = iota
	Wait
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	default:
		return "render"
	}
}

// Decision is the result of evaluating a rule. Target is set for redirects.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Rule protects a view. Empty Roles means any authenticated user.
type Rule struct {
	Roles auth.RoleSet
}

// AnyAuthenticated admits every signed in user.
func AnyAuthenticated() Rule {
	return Rule{}
}

// RequireRoles admits users holding one of roles.
func RequireRoles(roles ...auth.Role) Rule {
	return Rule{Roles: auth.NewRoleSet(roles...)}
}

// Evaluate is a pure function of the session state and the rule.
func Evaluate(state session.State, rule Rule) Decision {
	if !state.IsReady() {
		return Decision{Outcome: Wait}
	}
	if state.Identity == nil {
		return Decision{Outcome: Redirect, Target: LoginPath}
	}
	if rule.Roles != nil && !rule.Roles.Contains(state.Identity.Role) {
		return Decision{Outcome: Redirect, Target: DashboardPath}
	}
	return Decision{Outcome: Render}
}
