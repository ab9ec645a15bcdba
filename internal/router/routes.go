package router

import "swiftel-client/internal/domain/auth"

// Route is one entry of the application's navigation table.
type Route struct {
	Path   string
	Name   string
	Public bool
	Rule   Rule
}

var (
	employeeOnly = RequireRoles(auth.RoleEmployee)
	approvers    = RequireRoles(auth.RoleAdmin, auth.RoleBoardMember)
)

// Routes is the navigation table of the app shell. "/" redirects to the
// dashboard and anything not listed renders the not-found view.
var Routes = []Route{
	{Path: "/login", Name: "login", Public: true},
	{Path: "/register", Name: "register", Public: true},

	{Path: "/dashboard", Name: "dashboard", Rule: AnyAuthenticated()},
	{Path: "/account", Name: "account", Rule: AnyAuthenticated()},
	{Path: "/notifications", Name: "notifications", Rule: AnyAuthenticated()},
	{Path: "/requests/:id", Name: "request-details", Rule: AnyAuthenticated()},

	{Path: "/make-request", Name: "make-request", Rule: employeeOnly},
	{Path: "/my-requests", Name: "my-requests", Rule: employeeOnly},

	{Path: "/requests", Name: "requests", Rule: approvers},
	{Path: "/users", Name: "users", Rule: approvers},
}

// Lookup finds the route registered under path (as written in the table).
func Lookup(path string) (Route, bool) {
	for _, r := range Routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// MustRule returns the rule of a protected route and panics on unknown or
// public paths; used when wiring handlers.
func MustRule(path string) Rule {
	r, ok := Lookup(path)
	if !ok || r.Public {
		panic("router: no protected route " + path)
	}
	return r.Rule
}
